package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	name := objectName("chat-media", "image", now)

	assert.True(t, strings.HasPrefix(name, "chat-media/image/"))
	assert.True(t, strings.HasSuffix(name, "-20240301123000"))
	assert.NotEqual(t, name, objectName("chat-media", "image", now))
}
