// Package s3 keeps gold-table snapshots in an S3-compatible bucket. Every
// key is <table>/<file> below an optional bucket prefix.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/techstore/techstore-api/internal/storage"
)

const defaultContentType = "application/vnd.apache.parquet"

type Config struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

// bucket is the slice of the minio client the store needs.
type bucket interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

type Store struct {
	client bucket
	bucket string
	prefix string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	name := strings.TrimSpace(cfg.Bucket)
	if name == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	endpoint, secure := strings.TrimSpace(cfg.Endpoint), cfg.UseSSL
	switch {
	case endpoint == "":
		return nil, fmt.Errorf("s3 endpoint is required")
	case strings.HasPrefix(endpoint, "https://"):
		endpoint, secure = strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = strings.TrimPrefix(endpoint, "http://")
	}
	endpoint = strings.TrimSuffix(endpoint, "/")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	if cfg.AutoCreateBucket {
		exists, err := client.BucketExists(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("check bucket %q: %w", name, err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, name, minio.MakeBucketOptions{Region: strings.TrimSpace(cfg.Region)}); err != nil {
				return nil, fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
	}
	return newStore(client, name, cfg.Prefix), nil
}

func newStore(client bucket, name, prefix string) *Store {
	return &Store{
		client: client,
		bucket: name,
		prefix: strings.Trim(strings.TrimSpace(prefix), "/"),
	}
}

// Put uploads one snapshot part. The content type defaults to Parquet.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	objectName, err := s.objectName(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	info, err := s.client.PutObject(ctx, s.bucket, objectName, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("put object %q: %w", objectName, err)
	}
	return storage.ObjectInfo{Key: key, Size: info.Size, ETag: info.ETag}, nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	objectName, err := s.objectName(key)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err == nil {
		// GetObject is lazy; Stat surfaces a missing key before the caller reads.
		if _, err = obj.Stat(); err != nil {
			_ = obj.Close()
		}
	}
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrObjectNotFound
		}
		return nil, fmt.Errorf("get object %q: %w", objectName, err)
	}
	return obj, nil
}

// Delete treats a missing part as already removed.
func (s *Store) Delete(ctx context.Context, key string) error {
	objectName, err := s.objectName(key)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil && !isNotFound(err) {
		return fmt.Errorf("delete object %q: %w", objectName, err)
	}
	return nil
}

// List returns the parts of one table. prefix must be a table prefix as
// built by storage.TablePrefix.
func (s *Store) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	table := strings.TrimSuffix(prefix, "/")
	want, err := storage.TablePrefix(table)
	if err != nil || want != prefix {
		return nil, fmt.Errorf("invalid table prefix: %q", prefix)
	}
	listPrefix := s.join(prefix)

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := make([]storage.ObjectInfo, 0)
	for obj := range s.client.ListObjects(listCtx, s.bucket, minio.ListObjectsOptions{Prefix: listPrefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects %q: %w", listPrefix, obj.Err)
		}
		objects = append(objects, storage.ObjectInfo{
			Key:          strings.TrimPrefix(obj.Key, s.join("")),
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (s *Store) objectName(key string) (string, error) {
	if _, _, err := storage.SplitTableKey(key); err != nil {
		return "", err
	}
	return s.join(key), nil
}

func (s *Store) join(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func isNotFound(err error) bool {
	var response minio.ErrorResponse
	if !errors.As(err, &response) {
		return false
	}
	switch response.Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return true
	}
	return false
}
