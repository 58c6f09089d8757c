package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store holds the object-storage client and bucket. Constructed once at
// startup and injected; a nil *Store means assets are simply not stored.
type Store struct {
	client *minio.Client
	bucket string
}

// New connects to MinIO using the MINIO_* environment variables and
// verifies the bucket exists.
func New(ctx context.Context) (*Store, error) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "minio:9000"
	}

	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	secretKey := os.Getenv("MINIO_SECRET_KEY")

	bucket := os.Getenv("MINIO_BUCKET")
	if bucket == "" {
		bucket = "menu-assets"
	}

	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", bucket)
	}

	return &Store{client: client, bucket: bucket}, nil
}

// UploadMenuAsset stores a source PDF or rendered page image.
// Path format: {venue_id}/YYYY/MM/{filename}
func (s *Store) UploadMenuAsset(ctx context.Context, venueID, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	if filepath.Ext(filename) == "" {
		filename += FileExtension(contentType)
	}
	now := time.Now()
	objectName := fmt.Sprintf("%s/%d/%02d/%s", venueID, now.Year(), now.Month(), filename)

	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}

	return fmt.Sprintf("%s/%s", s.bucket, objectName), nil
}

// PresignedURL generates a time-limited view URL for an asset.
func (s *Store) PresignedURL(ctx context.Context, objectPath string) (string, error) {
	objectName := strings.TrimPrefix(objectPath, s.bucket+"/")

	url, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, 24*time.Hour, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url.String(), nil
}

// Delete removes an asset.
func (s *Store) Delete(ctx context.Context, objectPath string) error {
	objectName := strings.TrimPrefix(objectPath, s.bucket+"/")
	return s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
}

// FileExtension maps a content type to a file extension for object names.
func FileExtension(contentType string) string {
	switch contentType {
	case "application/pdf":
		return ".pdf"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
