package catalog

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/coffersTech/emojisearch/internal/model"
	"github.com/coffersTech/emojisearch/internal/storage"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// FileLoader reads catalog files from a local directory.
type FileLoader struct {
	dir    string
	reader *storage.CatalogReader
}

func NewFileLoader(dir string) (*FileLoader, error) {
	reader, err := storage.NewCatalogReader()
	if err != nil {
		return nil, err
	}
	return &FileLoader{dir: dir, reader: reader}, nil
}

func (l *FileLoader) Load(ctx context.Context, name string) (map[string]model.Emoji, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.reader.ReadFile(l.Location(name))
}

func (l *FileLoader) ModTime(_ context.Context, name string) (int64, error) {
	info, err := os.Stat(l.Location(name))
	if err != nil {
		return 0, err
	}
	return info.ModTime().UnixNano(), nil
}

func (l *FileLoader) Location(name string) string {
	return filepath.Join(l.dir, name)
}

// BucketLoader reads catalog files from a MinIO or S3-compatible bucket.
type BucketLoader struct {
	client *minio.Client
	bucket string
	prefix string
	reader *storage.CatalogReader
}

// NewBucketLoader creates a loader for objects under prefix in bucket.
func NewBucketLoader(client *minio.Client, bucket, prefix string) (*BucketLoader, error) {
	reader, err := storage.NewCatalogReader()
	if err != nil {
		return nil, err
	}
	return &BucketLoader{client: client, bucket: bucket, prefix: prefix, reader: reader}, nil
}

// DialBucket creates a MinIO client with static credentials.
func DialBucket(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
}

func (l *BucketLoader) key(name string) string {
	return path.Join(l.prefix, name)
}

func (l *BucketLoader) Load(ctx context.Context, name string) (map[string]model.Emoji, error) {
	obj, err := l.client.GetObject(ctx, l.bucket, l.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, translateBucketError(err)
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		return nil, translateBucketError(err)
	}
	return l.reader.Decode(buf.Bytes())
}

func (l *BucketLoader) ModTime(ctx context.Context, name string) (int64, error) {
	info, err := l.client.StatObject(ctx, l.bucket, l.key(name), minio.StatObjectOptions{})
	if err != nil {
		return 0, translateBucketError(err)
	}
	return info.LastModified.UnixNano(), nil
}

func (l *BucketLoader) Location(name string) string {
	return "s3://" + l.bucket + "/" + l.key(name)
}

func translateBucketError(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NotFound" {
		return os.ErrNotExist
	}
	return err
}
