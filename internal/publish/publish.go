// Package publish uploads finished packages to S3-compatible object storage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/five82/ladder/internal/config"
	"github.com/five82/ladder/internal/logging"
)

// ErrBucketNotFound is returned when the configured bucket does not exist.
var ErrBucketNotFound = errors.New("bucket not found")

// objectStore is the subset of *minio.Client used here.
type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Result summarizes one upload.
type Result struct {
	Objects int
	Bytes   int64
	// Keys lists the uploaded object names in upload order.
	Keys []string
}

// Publisher uploads job output under a key prefix.
type Publisher struct {
	store  objectStore
	bucket string
	prefix string
	log    *logging.Logger
}

// New connects to the endpoint in cfg and checks the bucket exists, so a
// misconfiguration fails before any job runs.
func New(ctx context.Context, cfg config.PublishConfig, log *logging.Logger) (*Publisher, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return newPublisher(ctx, client, cfg.Bucket, cfg.Prefix, log)
}

func newPublisher(ctx context.Context, store objectStore, bucket, prefix string, log *logging.Logger) (*Publisher, error) {
	if log == nil {
		log = logging.Global()
	}
	exists, err := store.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, bucket)
	}
	return &Publisher{
		store:  store,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		log:    log,
	}, nil
}

// Publish uploads localPath. A file becomes one object named after it. A
// folder is uploaded file by file under its own name, keeping the layout
// players expect next to the manifests.
func (p *Publisher) Publish(ctx context.Context, localPath string) (*Result, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("nothing to publish at %s: %w", localPath, err)
	}

	res := &Result{}
	if !info.IsDir() {
		if err := p.put(ctx, res, localPath, p.key(filepath.Base(localPath))); err != nil {
			return res, err
		}
		return res, nil
	}

	base := filepath.Dir(localPath)
	err = filepath.WalkDir(localPath, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(base, file)
		if err != nil {
			return err
		}
		return p.put(ctx, res, file, p.key(filepath.ToSlash(rel)))
	})
	return res, err
}

func (p *Publisher) put(ctx context.Context, res *Result, file, key string) error {
	info, err := p.store.FPutObject(ctx, p.bucket, key, file, minio.PutObjectOptions{
		ContentType: ContentType(file),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	res.Objects++
	res.Bytes += info.Size
	res.Keys = append(res.Keys, key)
	p.log.Debug("uploaded object", "bucket", p.bucket, "key", key, "size", info.Size)
	return nil
}

func (p *Publisher) key(name string) string {
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}

// ContentType returns the MIME type served for a package file.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".m4s":
		return "video/iso.segment"
	case ".mp4":
		return "video/mp4"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".zip":
		return "application/zip"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
