package s3

import (
	"context"
	"fmt"
	"io"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ExportStore хранилище CSV-выгрузок полевых логгеров
type ExportStore struct {
	bucket string
	client *minio.Client
}

func NewExportStore(cfg config.S3Config) (*ExportStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return &ExportStore{
		bucket: cfg.Bucket,
		client: client,
	}, nil
}

// Open открывает выгрузку по ключу; вызывающий закрывает reader
func (s *ExportStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.client == nil {
		return nil, fmt.Errorf("s3 client not initialized")
	}

	// GetObject ленивый: отсутствие объекта проявляется только при чтении, поэтому проверяем Stat
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("s3 stat object %q: %w", key, err)
	}

	return obj, nil
}
