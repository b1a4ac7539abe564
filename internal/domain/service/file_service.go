package service

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"chatterbox/internal/domain/entity"
)

// UploadResult is what the blob store hands back for a media message.
type UploadResult struct {
	URL  string
	Kind entity.MessageKind
}

// BlobStore uploads message media. Upload may fail with a transient error;
// the caller aborts the send without writing either twin.
type BlobStore interface {
	Upload(ctx context.Context, file io.Reader, contentType string) (UploadResult, error)
	Close() error
}

// KindFromContentType maps a MIME type onto a media kind. Anything that is
// not an image or video is treated as audio.
func KindFromContentType(contentType string) entity.MessageKind {
	switch {
	case strings.HasPrefix(contentType, "image"):
		return entity.KindImage
	case strings.HasPrefix(contentType, "video"):
		return entity.KindVideo
	default:
		return entity.KindAudio
	}
}

// SniffContentType detects the MIME type from the leading bytes of r and
// returns a reader that still yields the full content.
func SniffContentType(r io.Reader) (string, io.Reader, error) {
	var head bytes.Buffer
	mt, err := mimetype.DetectReader(io.TeeReader(r, &head))
	if err != nil {
		return "", nil, err
	}
	return mt.String(), io.MultiReader(&head, r), nil
}
