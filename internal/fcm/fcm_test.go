package fcm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	msg := BuildMessage("tok-123456789", Push{
		Title: "Novo comentário",
		Body:  "Ana comentou no seu post",
		Icon:  "/icon-192.png",
		Badge: "/icon-192.png",
		Tag:   "n-1",
		Link:  "/comunidade",
		Data:  map[string]string{"category": "community"},
	})

	assert.Equal(t, "tok-123456789", msg.Token)
	assert.Equal(t, "Novo comentário", msg.Notification.Title)
	assert.Equal(t, "n-1", msg.Data["notification_id"])
	assert.Equal(t, "/comunidade", msg.Data["link"])
	assert.Equal(t, "community", msg.Data["category"])

	require.NotNil(t, msg.Webpush)
	assert.Equal(t, "n-1", msg.Webpush.Notification.Tag)
	assert.Equal(t, "/icon-192.png", msg.Webpush.Notification.Icon)
	require.NotNil(t, msg.Webpush.FCMOptions)
	assert.Equal(t, "/comunidade", msg.Webpush.FCMOptions.Link)
	assert.Equal(t, "n-1", msg.Android.CollapseKey)
}

func TestBuildMessageWithoutLink(t *testing.T) {
	msg := BuildMessage("tok", Push{Title: "t", Body: "b"})
	assert.Nil(t, msg.Webpush.FCMOptions)
	_, ok := msg.Data["link"]
	assert.False(t, ok)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "abc", maskToken("abc"))
	assert.Equal(t, "...456789", maskToken("0123456789"))
}
