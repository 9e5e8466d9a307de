package repository

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"petshop_service/pkg/database"

	"github.com/google/uuid"
)

// 上傳路徑沿用既有 bucket 配置, customer 和 admin 分開
const (
	customerPathPrefix = "chat_images"
	adminPathPrefix    = "chat_images_admin"
)

// ImageStore definition chat image upload
type ImageStore interface {
	// UploadCustomerImage 上傳 customer 的圖片, 回傳 public url
	UploadCustomerImage(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error)
	// UploadAdminImage 上傳 admin 的圖片, 回傳 public url
	UploadAdminImage(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error)
}

type minioImageStore struct {
	mc             *database.MinIOClient
	customerBucket string
	adminBucket    string
}

// NewMinioImageStore create an ImageStore backed by minio
func NewMinioImageStore(mc *database.MinIOClient, customerBucket, adminBucket string) ImageStore {
	return &minioImageStore{
		mc:             mc,
		customerBucket: customerBucket,
		adminBucket:    adminBucket,
	}
}

func (s *minioImageStore) UploadCustomerImage(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error) {
	return s.upload(ctx, s.customerBucket, customerPathPrefix, filename, r, size, contentType)
}

func (s *minioImageStore) UploadAdminImage(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error) {
	return s.upload(ctx, s.adminBucket, adminPathPrefix, filename, r, size, contentType)
}

func (s *minioImageStore) upload(ctx context.Context, bucket, prefix, filename string, r io.Reader, size int64, contentType string) (string, error) {
	objectName := fmt.Sprintf("%s/%s%s", prefix, uuid.New().String(), normalizeExt(filename))
	if err := s.mc.UploadStream(ctx, bucket, objectName, r, size, contentType); err != nil {
		return "", err
	}
	return s.mc.PublicURL(bucket, objectName), nil
}

func normalizeExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
