package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	storage_go "github.com/supabase-community/storage-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	bucket      string
	path        string
	body        []byte
	contentType string
	upsert      bool
	err         error
}

func (f *fakeUploader) UploadFile(bucketID string, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error) {
	if f.err != nil {
		return storage_go.FileUploadResponse{}, f.err
	}
	f.bucket = bucketID
	f.path = relativePath
	f.body, _ = io.ReadAll(data)
	if len(fileOptions) > 0 {
		f.contentType = *fileOptions[0].ContentType
		f.upsert = *fileOptions[0].Upsert
	}
	return storage_go.FileUploadResponse{}, nil
}

func (f *fakeUploader) GetPublicUrl(bucketID string, filePath string, urlOptions ...storage_go.UrlOptions) storage_go.SignedUrlResponse {
	return storage_go.SignedUrlResponse{SignedURL: "https://project.example.co/storage/v1/object/public/" + bucketID + "/" + filePath}
}

func TestSupabaseStorage_Upload(t *testing.T) {
	fake := &fakeUploader{}
	s := &SupabaseStorage{client: fake, bucket: "reports"}

	url, err := s.Upload(context.Background(), "/surveys/1/report.xlsx", "application/octet-stream", bytes.NewReader([]byte("xlsx")))

	require.NoError(t, err)
	assert.Equal(t, "https://project.example.co/storage/v1/object/public/reports/surveys/1/report.xlsx", url)
	assert.Equal(t, "reports", fake.bucket)
	assert.Equal(t, "surveys/1/report.xlsx", fake.path)
	assert.Equal(t, []byte("xlsx"), fake.body)
	assert.True(t, fake.upsert)
}

func TestSupabaseStorage_UploadError(t *testing.T) {
	s := &SupabaseStorage{client: &fakeUploader{err: errors.New("bucket not found")}, bucket: "reports"}

	_, err := s.Upload(context.Background(), "a.xlsx", "text/plain", bytes.NewReader(nil))

	assert.ErrorContains(t, err, "bucket not found")
}

func TestNewSupabaseStorage_RequiresConfig(t *testing.T) {
	_, err := NewSupabaseStorage("", "key", "reports")
	assert.Error(t, err)

	_, err = NewSupabaseStorage("https://x.example.co", "key", "")
	assert.Error(t, err)

	s, err := NewSupabaseStorage("https://x.example.co/", "key", "reports")
	require.NoError(t, err)
	assert.Equal(t, "reports", s.bucket)
}
