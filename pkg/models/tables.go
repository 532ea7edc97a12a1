package models

// Table names, shared with realtime topics.
const (
	TableUsers         = "users"
	TableModules       = "modules"
	TablePDFs          = "pdfs"
	TableBanners       = "banners"
	TablePosts         = "posts"
	TableLikes         = "likes"
	TableComments      = "comments"
	TableNotifications = "notifications"
	TablePreferences   = "notification_preferences"
	TableDeviceTokens  = "device_tokens"
)

func (Module) TableName() string                  { return TableModules }
func (PDF) TableName() string                     { return TablePDFs }
func (Banner) TableName() string                  { return TableBanners }
func (Post) TableName() string                    { return TablePosts }
func (Like) TableName() string                    { return TableLikes }
func (Comment) TableName() string                 { return TableComments }
func (Notification) TableName() string            { return TableNotifications }
func (NotificationPreferences) TableName() string { return TablePreferences }
func (DeviceToken) TableName() string             { return TableDeviceTokens }
