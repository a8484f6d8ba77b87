// Package buffer wraps the S3-compatible object store the pipeline moves
// batches through: a landing bucket for raw uploads plus the completion
// marker, and a staging bucket for run-scoped CSV artifacts.
package buffer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"ingest-service/config"
	"ingest-service/internal/util"
)

// CompleteMarker is the landing-bucket object that signals a fully
// uploaded batch.
const CompleteMarker = "_complete"

type Client struct {
	mc     *minio.Client
	cfg    config.MinioConfig
	logger *zap.Logger
}

// NewClient connects to the object store and returns a client handle.
func NewClient(cfg config.MinioConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to object store: %w", err)
	}
	return &Client{
		mc:     mc,
		cfg:    cfg,
		logger: util.GetLogger(),
	}, nil
}

// EnsureBuckets creates the landing and staging buckets when missing.
func (c *Client) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{c.cfg.LandingBucket, c.cfg.StagingBucket} {
		exists, err := c.mc.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
		}
		if exists {
			continue
		}
		if err := c.mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
		c.logger.Info("Created bucket", zap.String("bucket", bucket))
	}
	return nil
}

// ListBatchFiles returns the object names under one raw prefix of the
// landing bucket, in listing order.
func (c *Client) ListBatchFiles(ctx context.Context, prefix string) ([]string, error) {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	var names []string
	for obj := range c.mc.ListObjects(ctx, c.cfg.LandingBucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		names = append(names, obj.Key)
	}
	return names, nil
}

// GetLandingObject fetches one landing-bucket object.
func (c *Client) GetLandingObject(ctx context.Context, name string) ([]byte, error) {
	return c.get(ctx, c.cfg.LandingBucket, name)
}

// PutLandingObject stores one uploaded batch file.
func (c *Client) PutLandingObject(ctx context.Context, name string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := c.mc.PutObject(ctx, c.cfg.LandingBucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", name, err)
	}
	return nil
}

// PutMarker writes the batch completion marker.
func (c *Client) PutMarker(ctx context.Context) error {
	content := []byte("complete")
	_, err := c.mc.PutObject(ctx, c.cfg.LandingBucket, CompleteMarker, bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: "text/plain"})
	if err != nil {
		return fmt.Errorf("failed to create completion marker: %w", err)
	}
	return nil
}

// MarkerExists reports whether the completion marker is present.
func (c *Client) MarkerExists(ctx context.Context) (bool, error) {
	_, err := c.mc.StatObject(ctx, c.cfg.LandingBucket, CompleteMarker, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat completion marker: %w", err)
	}
	return true, nil
}

// ProcessingStatus reports whether a batch is currently buffered or being
// processed, with a human-readable reason. It is derived purely from
// landing-bucket state so it stays truthful across restarts.
func (c *Client) ProcessingStatus(ctx context.Context) (bool, string, error) {
	marked, err := c.MarkerExists(ctx)
	if err != nil {
		return false, "", err
	}
	if marked {
		return true, "a completed batch is awaiting or undergoing processing", nil
	}
	for _, prefix := range []string{c.cfg.SalesPrefix, c.cfg.ProductPrefix} {
		names, err := c.ListBatchFiles(ctx, prefix)
		if err != nil {
			return false, "", err
		}
		if len(names) > 0 {
			return true, "a batch is buffered and awaiting its completion marker", nil
		}
	}
	return false, "ready for upload", nil
}

// ClearLanding removes every object in the landing bucket, batch files and
// marker alike. Called only after a fully successful run.
func (c *Client) ClearLanding(ctx context.Context) error {
	removed := 0
	for obj := range c.mc.ListObjects(ctx, c.cfg.LandingBucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return fmt.Errorf("failed to list landing bucket: %w", obj.Err)
		}
		if err := c.mc.RemoveObject(ctx, c.cfg.LandingBucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove %s: %w", obj.Key, err)
		}
		removed++
	}
	c.logger.Info("Cleared landing bucket", zap.Int("objects", removed))
	return nil
}

// GetStagingObject fetches one staging-bucket object by full path.
func (c *Client) GetStagingObject(ctx context.Context, path string) ([]byte, error) {
	return c.get(ctx, c.cfg.StagingBucket, path)
}

func (c *Client) get(ctx context.Context, bucket, name string) ([]byte, error) {
	obj, err := c.mc.GetObject(ctx, bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", name, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}
