package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".jpg", extensionFor("image/jpeg"))
	assert.Equal(t, ".webp", extensionFor("image/webp"))
	assert.Equal(t, ".mp4", extensionFor("video/mp4"))
	assert.Equal(t, "", extensionFor("application/octet-stream"))
}
