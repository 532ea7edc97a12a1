package imagehost

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"biblioteca-mistica/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestValidate(t *testing.T) {
	img := Image{Name: "a.png", Data: pngHeader}
	require.NoError(t, Validate(&img))
	assert.Equal(t, "image/png", img.ContentType)

	big := Image{ContentType: "image/png", Data: make([]byte, MaxImageSize+1)}
	err := Validate(&big)
	assert.True(t, apperr.IsValidation(err))
	assert.Contains(t, err.Error(), "5MB")

	text := Image{ContentType: "text/plain", Data: []byte("hello")}
	assert.True(t, apperr.IsValidation(Validate(&text)))

	empty := Image{ContentType: "image/png"}
	assert.True(t, apperr.IsValidation(Validate(&empty)))

	exact := Image{ContentType: "image/jpeg", Data: make([]byte, MaxImageSize)}
	assert.NoError(t, Validate(&exact))
}

func TestImgBBUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		if !assert.NoError(t, r.ParseMultipartForm(MaxImageSize)) {
			return
		}
		f, hdr, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, pngHeader, data)
		assert.Equal(t, "avatar.png", hdr.Filename)
		assert.Equal(t, "secret", r.FormValue("key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"status":200,"data":{"url":"https://i.ibb.co/x/avatar.png"}}`)
	}))
	defer srv.Close()

	c := NewImgBB("secret", srv.URL)
	url, err := c.Upload(context.Background(), Image{Name: "avatar.png", ContentType: "image/png", Data: pngHeader})
	require.NoError(t, err)
	assert.Equal(t, "https://i.ibb.co/x/avatar.png", url)
}

func TestImgBBUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"success":false,"status":400,"error":{"message":"Invalid API v1 key."}}`)
	}))
	defer srv.Close()

	_, err := NewImgBB("bad", srv.URL).Upload(context.Background(), Image{ContentType: "image/png", Data: pngHeader})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API v1 key.")
}

func TestImgBBRejectsBeforeRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	_, err := NewImgBB("secret", srv.URL).Upload(context.Background(), Image{ContentType: "application/pdf", Data: []byte("%PDF-1.4")})
	assert.True(t, apperr.IsValidation(err))
	assert.False(t, called)
}

type memStore struct {
	keys  []string
	types []string
}

func (m *memStore) Upload(_ context.Context, key string, _ []byte, contentType string) error {
	m.keys = append(m.keys, key)
	m.types = append(m.types, contentType)
	return nil
}

func (m *memStore) ObjectURL(key string) string { return "https://cdn.example.org/" + key }

func TestR2HostUpload(t *testing.T) {
	store := &memStore{}
	host := NewR2Host(store, "avatars")

	url, err := host.Upload(context.Background(), Image{Data: pngHeader})
	require.NoError(t, err)
	require.Len(t, store.keys, 1)
	assert.True(t, strings.HasPrefix(store.keys[0], "avatars/"))
	assert.True(t, strings.HasSuffix(store.keys[0], ".png"))
	assert.Equal(t, "image/png", store.types[0])
	assert.Equal(t, "https://cdn.example.org/"+store.keys[0], url)
}
