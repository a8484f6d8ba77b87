package buffer

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// RunFolder is a run-scoped prefix in the staging bucket, <folder>/<stamp>/.
// A stage writes its artifacts through it and deletes the whole prefix once
// the warehouse merge succeeded. Failed runs leave the prefix in place for
// inspection and replay.
type RunFolder struct {
	c      *Client
	prefix string
}

// EtlFolder returns the run folder the load orchestrator stages its CSVs in.
func (c *Client) EtlFolder(stamp string) *RunFolder {
	return &RunFolder{c: c, prefix: path.Join(c.cfg.EtlFolder, stamp) + "/"}
}

// ModelFolder returns the run folder a downstream analytic stage stages its
// results in. Downstream stages follow the same stage-then-delete protocol
// as the load orchestrator.
func (c *Client) ModelFolder(stage, stamp string) *RunFolder {
	return &RunFolder{c: c, prefix: path.Join(c.cfg.ModelsFolder, stage, stamp) + "/"}
}

// Prefix returns the staging-bucket prefix this folder writes under.
func (r *RunFolder) Prefix() string {
	return r.prefix
}

// Put stores one artifact under the run folder and returns its full path.
func (r *RunFolder) Put(ctx context.Context, name string, data []byte) (string, error) {
	objectPath := r.prefix + name
	_, err := r.c.mc.PutObject(ctx, r.c.cfg.StagingBucket, objectPath, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "text/csv"})
	if err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", objectPath, err)
	}
	return objectPath, nil
}

// Get fetches one artifact back from the run folder.
func (r *RunFolder) Get(ctx context.Context, name string) ([]byte, error) {
	return r.c.get(ctx, r.c.cfg.StagingBucket, r.prefix+name)
}

// Delete removes every object under the run folder.
func (r *RunFolder) Delete(ctx context.Context) error {
	removed := 0
	for obj := range r.c.mc.ListObjects(ctx, r.c.cfg.StagingBucket, minio.ListObjectsOptions{
		Prefix:    r.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return fmt.Errorf("failed to list staging prefix %s: %w", r.prefix, obj.Err)
		}
		if err := r.c.mc.RemoveObject(ctx, r.c.cfg.StagingBucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove staged %s: %w", obj.Key, err)
		}
		removed++
	}
	r.c.logger.Info("Deleted staging prefix", zap.String("prefix", r.prefix), zap.Int("objects", removed))
	return nil
}
