package preview

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"notevault/internal/domain"
	"notevault/internal/service/s3"
)

const (
	thumbWidth  = 320
	thumbHeight = 320
	ContentType = "image/jpeg"
)

// Key — ключ закэшированной миниатюры элемента в объектном хранилище
func Key(id uuid.UUID) string {
	return fmt.Sprintf("previews/%s", id)
}

// Service строит миниатюры картинок и кэширует их в объектном хранилище.
// Миниатюра живёт, пока живёт элемент: удаляется вместе с ним.
type Service struct {
	storage s3.Storage
}

func NewService(storage s3.Storage) *Service {
	return &Service{storage: storage}
}

// GetPreview возвращает миниатюру элемента, создавая её при первом запросе
func (s *Service) GetPreview(ctx context.Context, item *domain.Item) (io.ReadCloser, error) {
	if item.Kind != domain.KindImage || item.BlobKey == nil {
		return nil, fmt.Errorf("preview is only available for images")
	}

	cacheKey := Key(item.UUID)

	exists, err := s.storage.Exists(ctx, cacheKey)
	if err != nil {
		logrus.Warnf("preview: failed to check cache for %s: %v", item.UUID, err)
	}
	if exists {
		obj, err := s.storage.GetObject(ctx, cacheKey)
		if err == nil {
			return obj, nil
		}
		logrus.Warnf("preview: failed to read cached preview for %s: %v", item.UUID, err)
	}

	data, err := s.generate(ctx, *item.BlobKey)
	if err != nil {
		return nil, err
	}

	// Кэш заполняется по возможности: ошибка не мешает отдать ответ
	if err := s.storage.Upload(ctx, cacheKey, ContentType, bytes.NewReader(data)); err != nil {
		logrus.Warnf("preview: failed to cache preview for %s: %v", item.UUID, err)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Service) generate(ctx context.Context, blobKey string) ([]byte, error) {
	obj, err := s.storage.GetObject(ctx, blobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get source image: %w", err)
	}
	defer obj.Close()

	img, err := imaging.Decode(obj, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := imaging.Fit(img, thumbWidth, thumbHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}

	return buf.Bytes(), nil
}
