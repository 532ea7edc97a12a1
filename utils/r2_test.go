package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.org/images/a.png", ObjectURL("https://cdn.example.org/", "/images/a.png"))
	assert.Equal(t, "https://cdn.example.org/images/a.png", ObjectURL("https://cdn.example.org", "images/a.png"))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentTypeFor("foto.JPG"))
	assert.Equal(t, "image/webp", ContentTypeFor("x.webp"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("notes.txt"))
}
