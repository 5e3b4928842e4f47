// Пакет предоставляет хранилище картинок документов: локальный каталог или Minio. Картинки сохраняются
// под UUID, тип содержимого хранится вместе с файлом.
package filestorage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const UploadTries = 3

var ErrNotFound = errors.New("file not found")

type FileInfo struct {
	Name        string
	Size        int64
	ContentType string
	CreatedAt   time.Time
}

type FileStorage interface {
	Save(ctx context.Context, data []byte, name uuid.UUID, contentType string) error
	LoadReader(ctx context.Context, name uuid.UUID) (io.ReadCloser, *FileInfo, error)
	Delete(ctx context.Context, name uuid.UUID) error
	Exist(ctx context.Context, name uuid.UUID) (bool, error)
	ListRoot(ctx context.Context, fn func(FileInfo) error) error
}

// LocalStorage хранит файл name и рядом name.type с типом содержимого.
type LocalStorage struct {
	rootDir string
}

func NewLocalStorage(rootPath string) (FileStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, err
	}
	return &LocalStorage{rootPath}, nil
}

func (s *LocalStorage) path(name uuid.UUID) string {
	return filepath.Join(s.rootDir, name.String())
}

func (s *LocalStorage) Save(ctx context.Context, data []byte, name uuid.UUID, contentType string) error {
	if err := os.WriteFile(s.path(name), data, 0o644); err != nil {
		return err
	}
	return os.WriteFile(s.path(name)+".type", []byte(contentType), 0o644)
}

func (s *LocalStorage) LoadReader(ctx context.Context, name uuid.UUID) (io.ReadCloser, *FileInfo, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	contentType, _ := os.ReadFile(s.path(name) + ".type")
	return f, &FileInfo{
		Name:        name.String(),
		Size:        stat.Size(),
		ContentType: string(contentType),
		CreatedAt:   stat.ModTime(),
	}, nil
}

func (s *LocalStorage) Delete(ctx context.Context, name uuid.UUID) error {
	if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Remove(s.path(name) + ".type"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStorage) Exist(ctx context.Context, name uuid.UUID) (bool, error) {
	_, err := os.Stat(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *LocalStorage) ListRoot(ctx context.Context, fn func(FileInfo) error) error {
	entries, err := os.ReadDir(s.rootDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) == ".type" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		if err := fn(FileInfo{Name: e.Name(), Size: info.Size(), CreatedAt: info.ModTime()}); err != nil {
			return err
		}
	}
	return nil
}

type MinioStorage struct {
	client     *minio.Client
	bucketName string
}

// NewMinioStorage подключается к Minio и создает бакет, если его нет.
func NewMinioStorage(endpoint string, accessKeyID string, secretAccessKey string, useSSL bool, bucketName string) (FileStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &MinioStorage{client, bucketName}, nil
}

func (s *MinioStorage) Save(ctx context.Context, data []byte, name uuid.UUID, contentType string) error {
	var err error
	for i := range UploadTries {
		_, err = s.client.PutObject(ctx,
			s.bucketName,
			name.String(),
			bytes.NewReader(data),
			int64(len(data)),
			minio.PutObjectOptions{ContentType: contentType},
		)
		if err == nil {
			return nil
		}
		resp := minio.ToErrorResponse(err)
		slog.Error("Upload file to minio", "try", i+1, "code", resp.StatusCode, "msg", resp.Message)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second * time.Duration(i+1)):
		}
	}
	return err
}

func (s *MinioStorage) LoadReader(ctx context.Context, name uuid.UUID) (io.ReadCloser, *FileInfo, error) {
	stat, err := s.client.StatObject(ctx, s.bucketName, name.String(), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucketName, name.String(), minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, err
	}
	return obj, &FileInfo{
		Name:        name.String(),
		Size:        stat.Size,
		ContentType: stat.ContentType,
		CreatedAt:   stat.LastModified,
	}, nil
}

func (s *MinioStorage) Delete(ctx context.Context, name uuid.UUID) error {
	return s.client.RemoveObject(ctx, s.bucketName, name.String(), minio.RemoveObjectOptions{})
}

func (s *MinioStorage) Exist(ctx context.Context, name uuid.UUID) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucketName, name.String(), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *MinioStorage) ListRoot(ctx context.Context, fn func(FileInfo) error) error {
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return obj.Err
		}
		if err := fn(FileInfo{
			Name:        obj.Key,
			Size:        obj.Size,
			ContentType: obj.ContentType,
			CreatedAt:   obj.LastModified,
		}); err != nil {
			return err
		}
	}
	return nil
}
