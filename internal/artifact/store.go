package artifact

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config — настройки объектного хранилища артефактов.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Validate проверяет обязательные поля.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("artifact: endpoint is required")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return fmt.Errorf("artifact: access key and secret key are required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("artifact: bucket is required")
	}
	return nil
}

// Store загружает сгенерированные отчёты в S3-совместимое хранилище
// и выдаёт на них временные ссылки.
//
// Хранилище опционально: без него отчёты остаются только на локальном
// диске runner-а.
type Store struct {
	client *minio.Client
	cfg    Config
}

// NewStore создаёт клиент хранилища.
func NewStore(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("artifact: create client: %w", err)
	}
	return &Store{client: client, cfg: cfg}, nil
}

// EnsureBucket создаёт bucket, если его ещё нет.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("artifact: bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
		return fmt.Errorf("artifact: make bucket: %w", err)
	}
	return nil
}

// Put загружает локальный файл отчёта и возвращает ключ объекта.
// Ключ сохраняет относительную структуру каталогов отчёта.
func (s *Store) Put(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("artifact: open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("artifact: stat %s: %w", localPath, err)
	}

	key := filepath.ToSlash(filepath.Join(
		filepath.Base(filepath.Dir(localPath)),
		filepath.Base(localPath),
	))

	_, err = s.client.PutObject(ctx, s.cfg.Bucket, key, f, info.Size(), minio.PutObjectOptions{
		ContentType: "text/html",
	})
	if err != nil {
		return "", fmt.Errorf("artifact: put %s: %w", key, err)
	}
	return key, nil
}

// PresignGet возвращает временную ссылку на объект.
func (s *Store) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	u, err := s.client.PresignedGetObject(ctx, s.cfg.Bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("artifact: presign %s: %w", key, err)
	}
	return u.String(), nil
}
