package service

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatterbox/internal/domain/entity"
)

func TestKindFromContentType(t *testing.T) {
	assert.Equal(t, entity.KindImage, KindFromContentType("image/png"))
	assert.Equal(t, entity.KindVideo, KindFromContentType("video/mp4"))
	assert.Equal(t, entity.KindAudio, KindFromContentType("audio/mpeg"))
	assert.Equal(t, entity.KindAudio, KindFromContentType("application/octet-stream"))
}

func TestSniffContentTypeKeepsContent(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

	ct, r, err := SniffContentType(bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	all, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, png, all)
}
