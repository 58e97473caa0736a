package blob

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore implements Store for MinIO/S3 compatible storage with a
// public-read bucket, so Put returns directly downloadable URLs.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	urlPrefix string
}

// NewMinioStore connects to MinIO, ensures the bucket exists, and applies a
// public read-only policy so object URLs are downloadable without
// credentials. publicBaseURL is the externally reachable endpoint
// (e.g. "https://blobs.example.com"); when empty the connection endpoint is
// used.
func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool, publicBaseURL string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
		if err := client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
			return nil, fmt.Errorf("set bucket policy: %w", err)
		}
	}
	if publicBaseURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicBaseURL = scheme + "://" + endpoint
	}
	return &MinioStore{
		client:    client,
		bucket:    bucket,
		urlPrefix: strings.TrimRight(publicBaseURL, "/") + "/" + bucket + "/",
	}, nil
}

// Put uploads an object and returns its canonical description.
func (m *MinioStore) Put(ctx context.Context, pathname string, r io.Reader, size int64, contentType string) (Object, error) {
	info, err := m.client.PutObject(ctx, m.bucket, pathname, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return Object{}, fmt.Errorf("put object: %w", err)
	}
	return Object{
		URL:         m.urlPrefix + pathname,
		Pathname:    pathname,
		ContentType: contentType,
		Size:        info.Size,
		UploadedAt:  time.Now().UTC(),
	}, nil
}

// Get opens an object for reading.
func (m *MinioStore) Get(ctx context.Context, urlOrPathname string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, m.key(urlOrPathname), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	// GetObject is lazy; surface missing objects here.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("stat object: %w", err)
	}
	return obj, nil
}

// Delete removes an object.
func (m *MinioStore) Delete(ctx context.Context, urlOrPathname string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, m.key(urlOrPathname), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// List returns every object in the bucket, newest first.
func (m *MinioStore) List(ctx context.Context) ([]Object, error) {
	var objects []Object
	for info := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("list objects: %w", info.Err)
		}
		objects = append(objects, Object{
			URL:         m.urlPrefix + info.Key,
			Pathname:    info.Key,
			ContentType: info.ContentType,
			Size:        info.Size,
			UploadedAt:  info.LastModified.UTC(),
		})
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].UploadedAt.After(objects[j].UploadedAt)
	})
	return objects, nil
}

func (m *MinioStore) key(urlOrPathname string) string {
	return strings.TrimPrefix(urlOrPathname, m.urlPrefix)
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Principal": {"AWS": ["*"]},
      "Action": ["s3:GetObject"],
      "Resource": ["arn:aws:s3:::%s/*"]
    }
  ]
}`, bucket)
}
