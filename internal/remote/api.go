package remote

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"biblioteca-mistica/internal/inbox"
	"biblioteca-mistica/internal/realtime"
	"biblioteca-mistica/internal/session"
	"biblioteca-mistica/internal/wall"
	"biblioteca-mistica/pkg/models"

	"github.com/google/uuid"
)

var (
	_ wall.Store          = (*Client)(nil)
	_ inbox.Store         = (*Client)(nil)
	_ realtime.Subscriber = (*Client)(nil)
)

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*session.Session, error) {
	var out session.Session
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/v1/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Modules returns the catalog with the lock state of each module.
func (c *Client) Modules(ctx context.Context) ([]models.ModuleView, error) {
	var out struct {
		Modules []models.ModuleView `json:"modules"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/modules", nil, &out); err != nil {
		return nil, err
	}
	return out.Modules, nil
}

// Module loads an unlocked module with its PDFs. A locked module returns an
// *apperr.LockedError.
func (c *Client) Module(ctx context.Context, slug string) (*models.Module, error) {
	var m models.Module
	if err := c.do(ctx, http.MethodGet, "/v1/modules/"+url.PathEscape(slug), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) Banners(ctx context.Context) ([]models.Banner, error) {
	var out struct {
		Banners []models.Banner `json:"banners"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/banners", nil, &out); err != nil {
		return nil, err
	}
	return out.Banners, nil
}

func postsPath(kind models.PostKind) string {
	return "/v1/" + string(kind) + "/posts"
}

func postPath(kind models.PostKind, id uuid.UUID) string {
	return postsPath(kind) + "/" + id.String()
}

func (c *Client) ListPosts(ctx context.Context, kind models.PostKind) ([]models.Post, error) {
	var out struct {
		Posts []models.Post `json:"posts"`
	}
	if err := c.do(ctx, http.MethodGet, postsPath(kind), nil, &out); err != nil {
		return nil, err
	}
	return out.Posts, nil
}

func (c *Client) CreatePost(ctx context.Context, kind models.PostKind, req *models.PostRequest) (*models.Post, error) {
	var p models.Post
	if err := c.do(ctx, http.MethodPost, postsPath(kind), req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeletePost(ctx context.Context, kind models.PostKind, postID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, postPath(kind, postID), nil, nil)
}

func (c *Client) HasLiked(ctx context.Context, kind models.PostKind, postID uuid.UUID) (bool, error) {
	var out struct {
		Liked bool `json:"liked"`
	}
	if err := c.do(ctx, http.MethodGet, postPath(kind, postID)+"/like", nil, &out); err != nil {
		return false, err
	}
	return out.Liked, nil
}

func (c *Client) Like(ctx context.Context, kind models.PostKind, postID uuid.UUID) error {
	return c.do(ctx, http.MethodPut, postPath(kind, postID)+"/like", nil, nil)
}

func (c *Client) Unlike(ctx context.Context, kind models.PostKind, postID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, postPath(kind, postID)+"/like", nil, nil)
}

func (c *Client) ListComments(ctx context.Context, kind models.PostKind, postID uuid.UUID) ([]models.Comment, error) {
	var out struct {
		Comments []models.Comment `json:"comments"`
	}
	if err := c.do(ctx, http.MethodGet, postPath(kind, postID)+"/comments", nil, &out); err != nil {
		return nil, err
	}
	return out.Comments, nil
}

func (c *Client) AddComment(ctx context.Context, kind models.PostKind, postID uuid.UUID, body string) (*models.Comment, error) {
	var cm models.Comment
	err := c.do(ctx, http.MethodPost, postPath(kind, postID)+"/comments", map[string]string{"body": body}, &cm)
	if err != nil {
		return nil, err
	}
	return &cm, nil
}

func (c *Client) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	var out struct {
		Notifications []models.Notification `json:"notifications"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/notifications", nil, &out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

func (c *Client) CreateNotification(ctx context.Context, req *models.NotificationRequest) (*models.Notification, error) {
	var n models.Notification
	if err := c.do(ctx, http.MethodPost, "/v1/notifications", req, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/v1/notifications/"+id.String()+"/read", nil, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/notifications/read-all", nil, &out); err != nil {
		return 0, err
	}
	return out.Updated, nil
}

func (c *Client) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/v1/notifications/"+id.String(), nil, nil)
}

func (c *Client) ClearNotifications(ctx context.Context) (int64, error) {
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, "/v1/notifications", nil, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

func (c *Client) Preferences(ctx context.Context) (*models.NotificationPreferences, error) {
	var p models.NotificationPreferences
	if err := c.do(ctx, http.MethodGet, "/v1/notifications/preferences", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdatePreferences(ctx context.Context, p models.NotificationPreferences) (*models.NotificationPreferences, error) {
	var out models.NotificationPreferences
	if err := c.do(ctx, http.MethodPut, "/v1/notifications/preferences", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RegisterDevice(ctx context.Context, token, platform string) error {
	return c.do(ctx, http.MethodPost, "/v1/devices", map[string]string{"token": token, "platform": platform}, nil)
}

func (c *Client) UnregisterDevice(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, "/v1/devices", map[string]string{"token": token}, nil)
}

func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/v1/profile", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodPatch, "/v1/profile", upd, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// MyPosts returns the signed-in user's most recent posts.
func (c *Client) MyPosts(ctx context.Context) ([]models.Post, error) {
	var out struct {
		Posts []models.Post `json:"posts"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/profile/posts", nil, &out); err != nil {
		return nil, err
	}
	return out.Posts, nil
}

// UploadImage stores an image for a post and returns its public URL.
func (c *Client) UploadImage(ctx context.Context, name, contentType string, data []byte) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.upload(ctx, "/v1/uploads/images", name, contentType, data, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// UploadAvatar replaces the profile picture and returns the updated user.
func (c *Client) UploadAvatar(ctx context.Context, name, contentType string, data []byte) (*models.User, error) {
	var u models.User
	if err := c.upload(ctx, "/v1/profile/avatar", name, contentType, data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) upload(ctx context.Context, path, name, contentType string, data []byte, result interface{}) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, name))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, &body, w.FormDataContentType())
	if err != nil {
		return err
	}
	return c.send(req, result)
}
