package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"shelftrack/internal/config"
)

// Upload is the normalized result of storing one image: a resolvable URL and
// the store's handle for later deletion.
type Upload struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

// ImageStore abstracts the external object store holding collection images.
type ImageStore interface {
	// UploadBuffer streams raw image bytes under the given folder.
	UploadBuffer(ctx context.Context, data []byte, folder string) (*Upload, error)
	// UploadEncoded accepts a base64 string or data URL and normalizes it to
	// the same result shape as UploadBuffer.
	UploadEncoded(ctx context.Context, encoded string, folder string) (*Upload, error)
	// Delete removes a previously uploaded image. Callers treat failures as
	// best-effort cleanup and must not propagate them.
	Delete(ctx context.Context, publicID string) error
}

// objectClient is the slice of the minio client the store needs; tests swap
// in a fake.
type objectClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

type MinioImageStore struct {
	endpoint string
	bucket   string
	useSSL   bool
	client   objectClient
}

func NewMinioImageStore(cfg config.StorageConfig) (*MinioImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	return &MinioImageStore{
		endpoint: cfg.Endpoint,
		bucket:   cfg.Bucket,
		useSSL:   cfg.UseSSL,
		client:   client,
	}, nil
}

var extensionByContentType = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

func (s *MinioImageStore) UploadBuffer(ctx context.Context, data []byte, folder string) (*Upload, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}

	contentType := http.DetectContentType(data)
	key := uuid.NewString() + extensionByContentType[contentType]
	if folder != "" {
		key = strings.Trim(folder, "/") + "/" + key
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	return &Upload{SecureURL: s.objectURL(key), PublicID: key}, nil
}

func (s *MinioImageStore) UploadEncoded(ctx context.Context, encoded string, folder string) (*Upload, error) {
	data, err := decodeImageString(encoded)
	if err != nil {
		return nil, err
	}
	return s.UploadBuffer(ctx, data, folder)
}

func (s *MinioImageStore) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return fmt.Errorf("empty public id")
	}
	if err := s.client.RemoveObject(ctx, s.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete image %s: %w", publicID, err)
	}
	return nil
}

func (s *MinioImageStore) objectURL(key string) string {
	scheme := "https"
	if !s.useSSL {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, key)
}

// decodeImageString accepts either a bare base64 string or a
// "data:image/...;base64,..." data URL.
func decodeImageString(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("empty image payload")
	}

	if strings.HasPrefix(encoded, "data:") {
		i := strings.Index(encoded, "base64,")
		if i == -1 {
			return nil, fmt.Errorf("unsupported data URL encoding")
		}
		encoded = encoded[i+len("base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image payload: %w", err)
	}
	return data, nil
}

var versionSegment = regexp.MustCompile(`^v\d+/`)

// PublicIDFromURL derives a public id from a legacy image URL for records
// stored before public ids were persisted: it takes everything after the
// "upload" path segment, strips a leading v<digits>/ version segment and the
// file extension. Malformed input yields an empty string, never a panic.
func PublicIDFromURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	parts := strings.Split(rawURL, "/")
	uploadIndex := -1
	for i, part := range parts {
		if part == "upload" {
			uploadIndex = i
			break
		}
	}
	if uploadIndex == -1 || uploadIndex == len(parts)-1 {
		return ""
	}

	publicID := strings.Join(parts[uploadIndex+1:], "/")
	publicID = versionSegment.ReplaceAllString(publicID, "")

	if dot := strings.LastIndex(publicID, "."); dot > strings.LastIndex(publicID, "/") {
		publicID = publicID[:dot]
	}
	return publicID
}
