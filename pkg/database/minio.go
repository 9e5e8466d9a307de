package database

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient definition minio client
type MinIOClient struct {
	Client   *minio.Client
	Endpoint string
	UseSSL   bool
}

// NewMinIOConnection create a new minio connection have retry
func NewMinIOConnection(d MinIOConnection) (*MinIOClient, error) {
	var mc *MinIOClient
	var err error

	for i := 1; i <= d.RetryCount; i++ {
		mc, err = NewMinioClient(d.Endpoint, d.User, d.Password, d.Buckets, d.UseSSL)
		if err == nil {
			log.Printf("minIO[%s] 連線成功 (嘗試 %d 次)", d.Endpoint, i)
			return mc, nil
		}

		log.Printf("minIO[%s] 連線失敗 (嘗試 %d/%d): %v", d.Endpoint, i, d.RetryCount, err)
		time.Sleep(d.RetryInterval * time.Second)
	}

	return mc, err
}

// NewMinioClient create a new minio, 確保每個 bucket 都存在
func NewMinioClient(endpoint, accessKey, secretKey string, buckets []string, useSSL bool) (*MinIOClient, error) {
	minioClient, err := minio.New(endpoint,
		&minio.Options{
			Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
			Secure: useSSL,
		})
	if err != nil {
		return nil, fmt.Errorf("init minio fail: %v", err)
	}

	ctx := context.Background()
	for _, bucketName := range buckets {
		exists, err := minioClient.BucketExists(ctx, bucketName)
		if err != nil {
			return nil, fmt.Errorf("check bucket [%s] fail: %v", bucketName, err)
		}

		if !exists {
			if err = minioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
				return nil, fmt.Errorf("create bucket [%s] fail: %v", bucketName, err)
			}
			log.Printf("Bucket [%s] 建立成功", bucketName)
		} else {
			log.Printf("Bucket [%s] 已存在", bucketName)
		}
	}

	return &MinIOClient{
		Client:   minioClient,
		Endpoint: endpoint,
		UseSSL:   useSSL,
	}, nil
}

// UploadStream minio upload from reader
func (m *MinIOClient) UploadStream(ctx context.Context, bucketName, objectName string, r io.Reader, size int64, contentType string) error {
	_, err := m.Client.PutObject(ctx, bucketName, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// PublicURL build the public object url for stored message content
func (m *MinIOClient) PublicURL(bucketName, objectName string) string {
	scheme := "http"
	if m.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, m.Endpoint, bucketName, objectName)
}
