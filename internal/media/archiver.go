// Package media archives inbound voice notes to S3-compatible storage.
// When storage is not configured (empty bucket), the NoopArchiver is used
// and voice notes are processed without being retained.
package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/productif-io/assistant/internal/config"
)

// Archiver stores a copy of a voice note for later review.
type Archiver interface {
	// Archive stores the audio bytes for the given user and message.
	// Returns the object key, or an empty string when archiving is disabled.
	Archive(ctx context.Context, userID, messageID string, audio []byte, mimeType string) (string, error)
}

// objectStore defines the minimal minio.Client operations used by S3Archiver.
// This interface enables testing with mock implementations.
type objectStore interface {
	PutObject(ctx context.Context, bucket, objectName string, data []byte, contentType string) error
}

// minioStoreWrapper wraps *minio.Client to satisfy the objectStore interface.
type minioStoreWrapper struct {
	client *minio.Client
}

func (w *minioStoreWrapper) PutObject(ctx context.Context, bucket, objectName string, data []byte, contentType string) error {
	_, err := w.client.PutObject(ctx, bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// S3Archiver uploads voice notes to S3-compatible storage.
type S3Archiver struct {
	store  objectStore
	bucket string
	now    func() time.Time
}

// Archive uploads the audio under a date-partitioned key.
func (a *S3Archiver) Archive(ctx context.Context, userID, messageID string, audio []byte, mimeType string) (string, error) {
	key := objectKey(userID, messageID, mimeType, a.now())
	if err := a.store.PutObject(ctx, a.bucket, key, audio, mimeType); err != nil {
		return "", fmt.Errorf("archive voice note: %w", err)
	}
	return key, nil
}

// NoopArchiver is used when object storage is not configured.
type NoopArchiver struct{}

// Archive is a no-op when storage is not configured.
func (a *NoopArchiver) Archive(ctx context.Context, userID, messageID string, audio []byte, mimeType string) (string, error) {
	return "", nil
}

// NewArchiver creates the appropriate Archiver based on configuration.
// Returns NoopArchiver when bucket is empty, S3Archiver otherwise.
func NewArchiver(cfg config.MediaConfig) (Archiver, error) {
	if cfg.Bucket == "" {
		return &NoopArchiver{}, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3Archiver{
		store:  &minioStoreWrapper{client: client},
		bucket: cfg.Bucket,
		now:    time.Now,
	}, nil
}

// objectKey returns the storage key for a voice note.
// Convention: voice/{yyyy-mm-dd}/{user_id}/{message_id}.{ext}
func objectKey(userID, messageID, mimeType string, now time.Time) string {
	return fmt.Sprintf("voice/%s/%s/%s%s", now.UTC().Format("2006-01-02"), userID, messageID, extension(mimeType))
}

func extension(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "audio/ogg"):
		return ".ogg"
	case strings.HasPrefix(mimeType, "audio/mpeg"):
		return ".mp3"
	case strings.HasPrefix(mimeType, "audio/mp4"), strings.HasPrefix(mimeType, "audio/m4a"):
		return ".m4a"
	default:
		return ".bin"
	}
}
