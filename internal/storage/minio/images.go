package minio

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"
	"github.com/pribylovaa/accounts-service/internal/storage"
)

// UploadImage сохраняет изображение в бакет и возвращает публичный URL.
// Валидирует contentType и размер согласно конфигу, формирует ключ вида
// "<kind>/<uuid>.<ext>" и выполняет серверный PutObject: клиент отдаёт файл
// сервису, сервис — в хранилище (контракт «store blob, return URL»).
func (s *ImageStorage) UploadImage(ctx context.Context, kind string, upload storage.ImageUpload) (string, error) {
	const op = "storage/minio/UploadImage"

	if strings.TrimSpace(kind) == "" || upload.Body == nil {
		return "", storage.ErrInvalidArgument
	}

	if upload.Size <= 0 || upload.Size > s.cfg.Images.MaxSizeBytes {
		return "", storage.ErrInvalidArgument
	}

	if !isAllowedContentType(s.cfg.Images.AllowedContentTypes, upload.ContentType) {
		return "", storage.ErrInvalidArgument
	}

	var ext string
	switch upload.ContentType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	case "image/webp":
		ext = ".webp"
	default:
		ext = ""
	}

	// Генерация ключа вида: <kind>/<uuid>.<ext>
	key := path.Join(kind, uuid.NewString()+ext)

	_, err := s.client.PutObject(ctx, s.cfg.S3.Bucket, key, upload.Body, upload.Size,
		mclient.PutObjectOptions{ContentType: upload.ContentType},
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return s.publicURL(key), nil
}

// publicURL собирает итоговый URL объекта: PublicBaseURL, если задан,
// иначе — endpoint/bucket напрямую.
func (s *ImageStorage) publicURL(key string) string {
	if s.cfg.S3.PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.S3.PublicBaseURL, "/") + "/" + key
	}

	base := strings.TrimRight(s.cfg.S3.Endpoint, "/")
	return base + "/" + s.cfg.S3.Bucket + "/" + key
}

// isAllowedContentType проверяет, что тип содержимого входит в allow-list.
func isAllowedContentType(allow []string, contentType string) bool {
	for _, a := range allow {
		if a == contentType {
			return true
		}
	}

	return false
}
