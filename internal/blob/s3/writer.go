package s3blob

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tonmev/tonmev/internal/domain"
)

// SnapshotWriter implements domain.SnapshotWriter over an S3-compatible
// backend. Snapshots are small JSON documents, so a single PutObject per
// snapshot is sufficient.
type SnapshotWriter struct {
	client *s3.Client
	bucket string
}

// NewSnapshotWriter creates a SnapshotWriter that uploads into the client's
// configured bucket.
func NewSnapshotWriter(c *Client) *SnapshotWriter {
	return &SnapshotWriter{
		client: c.S3(),
		bucket: c.Bucket(),
	}
}

// Write uploads data under key as application/json.
func (w *SnapshotWriter) Write(ctx context.Context, key string, data []byte) error {
	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put object %s: %w", key, err)
	}
	return nil
}

var _ domain.SnapshotWriter = (*SnapshotWriter)(nil)
