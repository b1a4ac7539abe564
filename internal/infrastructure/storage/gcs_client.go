package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"chatterbox/internal/domain/service"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
)

// CloudStorageClient is the GCS-backed media store for chat attachments.
type CloudStorageClient struct {
	client     *storage.Client
	bucketName string
	folder     string
}

func NewCloudStorageClient(ctx context.Context, bucketName string, opts ...option.ClientOption) (*CloudStorageClient, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	return &CloudStorageClient{
		client:     client,
		bucketName: bucketName,
		folder:     "chat-media",
	}, nil
}

// Upload writes the media under chat-media/<kind>/ and returns its public URL.
// An empty contentType is sniffed from the content.
func (c *CloudStorageClient) Upload(ctx context.Context, file io.Reader, contentType string) (service.UploadResult, error) {
	if contentType == "" || contentType == "application/octet-stream" {
		detected, rest, err := service.SniffContentType(file)
		if err != nil {
			return service.UploadResult{}, errors.InvalidArgument("unreadable media")
		}
		contentType, file = detected, rest
	}

	kind := service.KindFromContentType(contentType)
	name := objectName(c.folder, string(kind), time.Now())

	obj := c.client.Bucket(c.bucketName).Object(name)
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=86400"

	if _, err := io.Copy(wc, file); err != nil {
		wc.Close()
		return service.UploadResult{}, errors.Unavailable("failed to upload media", err)
	}
	if err := wc.Close(); err != nil {
		return service.UploadResult{}, errors.Unavailable("failed to upload media", err)
	}

	logger.Debug("uploaded %s media to gs://%s/%s", kind, c.bucketName, name)
	return service.UploadResult{
		URL:  fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucketName, name),
		Kind: kind,
	}, nil
}

func objectName(folder, kind string, now time.Time) string {
	return fmt.Sprintf("%s/%s/%s-%s", folder, kind, uuid.New().String(), now.Format("20060102150405"))
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}
