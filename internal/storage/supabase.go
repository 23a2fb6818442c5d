package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
)

// uploader is the part of the storage-go client used here
type uploader interface {
	UploadFile(bucketID string, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
	GetPublicUrl(bucketID string, filePath string, urlOptions ...storage_go.UrlOptions) storage_go.SignedUrlResponse
}

// SupabaseStorage uploads report files to a bucket of the hosted backend
type SupabaseStorage struct {
	client uploader
	bucket string
}

// NewSupabaseStorage creates a storage client from the project URL and service key
func NewSupabaseStorage(projectURL, key, bucket string) (*SupabaseStorage, error) {
	if projectURL == "" || key == "" {
		return nil, errors.New("store url and key are required")
	}
	if bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	endpoint := strings.TrimRight(projectURL, "/") + "/storage/v1"
	return &SupabaseStorage{
		client: storage_go.NewClient(endpoint, key, nil),
		bucket: bucket,
	}, nil
}

// Upload stores body under path (overwriting) and returns its public URL
func (s *SupabaseStorage) Upload(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path = strings.TrimLeft(path, "/")

	upsert := true
	options := storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}
	if _, err := s.client.UploadFile(s.bucket, path, body, options); err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", s.bucket, path, err)
	}

	public := s.client.GetPublicUrl(s.bucket, path)
	return public.SignedURL, nil
}
