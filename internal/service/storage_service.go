package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"notevault/internal/domain"
	"notevault/internal/quota"
	"notevault/internal/service/s3"
)

const (
	maxUploadSize = 100 * 1024 * 1024 // 100MB
	maxTitleLen   = 200

	defaultPageLimit = 20
	maxPageLimit     = 100
	recentLimit      = 10
)

// Разрешённые типы загружаемых файлов по виду элемента
var allowedMIMETypes = map[domain.ItemKind]map[string]bool{
	domain.KindImage: {
		"image/jpeg": true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	},
	domain.KindPDF: {
		"application/pdf": true,
	},
}

// StorageService — операции над элементами (заметки, картинки, PDF).
// Протокол работы с квотой: место резервируется атомарно до любой записи
// элемента или объекта; при ошибке дальше по цепочке резерв возвращается.
type StorageService struct {
	items   ItemRepository
	folders FolderRepository
	quotas  QuotaRepository
	blobs   s3.Storage
	janitor *BlobJanitor
}

func NewStorageService(items ItemRepository, folders FolderRepository, quotas QuotaRepository, blobs s3.Storage, janitor *BlobJanitor) *StorageService {
	return &StorageService{
		items:   items,
		folders: folders,
		quotas:  quotas,
		blobs:   blobs,
		janitor: janitor,
	}
}

// reserve проверяет и занимает bytes в квоте владельца.
// Возвращает QuotaExceededError, если места не хватает.
func (s *StorageService) reserve(ctx context.Context, ownerID string, bytes int64) error {
	q, err := s.quotas.GetQuota(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if !quota.Fits(q.UsedBytes, q.TotalBytesLimit, bytes) {
		return &QuotaExceededError{
			RequiredBytes:  bytes,
			AvailableBytes: quota.Available(q.UsedBytes, q.TotalBytesLimit),
		}
	}

	ok, err := s.quotas.Reserve(ctx, ownerID, bytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !ok {
		// Проиграли гонку параллельной резервации
		q, err = s.quotas.GetQuota(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInternal, err)
		}
		return &QuotaExceededError{
			RequiredBytes:  bytes,
			AvailableBytes: quota.Available(q.UsedBytes, q.TotalBytesLimit),
		}
	}

	return nil
}

func (s *StorageService) release(ctx context.Context, ownerID string, bytes int64) {
	if bytes <= 0 {
		return
	}
	if err := s.quotas.Release(ctx, ownerID, bytes); err != nil {
		logrus.Errorf("failed to release %d reserved bytes for %s: %v", bytes, ownerID, err)
	}
}

func (s *StorageService) checkFolder(ctx context.Context, ownerID string, folderID *int64) error {
	if folderID == nil {
		return nil
	}
	if _, err := s.folders.GetByID(ctx, ownerID, *folderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: folder does not exist", ErrNotFound)
		}
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return nil
}

// CreateNote создаёт текстовую заметку. Размер заметки — длина
// заголовка и содержимого в байтах UTF-8.
func (s *StorageService) CreateNote(ctx context.Context, ownerID string, folderID *int64, title, content string) (*domain.Item, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len([]rune(title)) > maxTitleLen {
		return nil, fmt.Errorf("%w: title is too long", ErrInvalidInput)
	}

	if err := s.checkFolder(ctx, ownerID, folderID); err != nil {
		return nil, err
	}

	size := int64(len(title) + len(content))

	if err := s.reserve(ctx, ownerID, size); err != nil {
		return nil, err
	}

	item := &domain.Item{
		UUID:      uuid.New(),
		OwnerID:   ownerID,
		FolderID:  folderID,
		Kind:      domain.KindNote,
		Title:     title,
		Content:   content,
		SizeBytes: size,
	}

	if err := s.items.Create(ctx, item); err != nil {
		s.release(ctx, ownerID, size)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	return item, nil
}

// UpdateNote изменяет текстовую заметку с пересчётом размера.
// nil означает "оставить поле как есть". Файлы не редактируются.
func (s *StorageService) UpdateNote(ctx context.Context, ownerID string, id uuid.UUID, title, content *string) (*domain.Item, error) {
	item, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if item.Kind != domain.KindNote {
		return nil, fmt.Errorf("%w: only text notes can be updated", ErrInvalidInput)
	}

	newTitle := item.Title
	if title != nil && *title != "" {
		if len([]rune(*title)) > maxTitleLen {
			return nil, fmt.Errorf("%w: title is too long", ErrInvalidInput)
		}
		newTitle = *title
	}
	newContent := item.Content
	if content != nil {
		newContent = *content
	}

	newSize := int64(len(newTitle) + len(newContent))
	delta := newSize - item.SizeBytes

	// Рост занимает место заранее, уменьшение возвращается после записи
	if delta > 0 {
		if err := s.reserve(ctx, ownerID, delta); err != nil {
			return nil, err
		}
	}

	item.Title = newTitle
	item.Content = newContent
	item.SizeBytes = newSize

	if err := s.items.Update(ctx, item); err != nil {
		if delta > 0 {
			s.release(ctx, ownerID, delta)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: note does not exist", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if delta < 0 {
		s.release(ctx, ownerID, -delta)
	}

	return item, nil
}

// UploadFile принимает файл (картинку или PDF) и кладёт его в объектное
// хранилище. Заголовок по умолчанию — имя файла без расширения.
func (s *StorageService) UploadFile(ctx context.Context, ownerID string, kind domain.ItemKind, folderID *int64, title, filename, contentType string, size int64, body io.Reader) (*domain.Item, error) {
	if !kind.HasBlob() {
		return nil, fmt.Errorf("%w: unsupported item kind %q", ErrInvalidInput, kind)
	}
	if body == nil || size <= 0 {
		return nil, fmt.Errorf("%w: file is required", ErrInvalidInput)
	}
	if size > maxUploadSize {
		return nil, fmt.Errorf("%w: file exceeds maximum size of %s", ErrInvalidInput, quota.FormatBytes(maxUploadSize))
	}
	if !allowedMIMETypes[kind][contentType] {
		return nil, fmt.Errorf("%w: content type %q is not allowed for %s", ErrInvalidInput, contentType, kind)
	}

	if title == "" {
		base := path.Base(filename)
		title = strings.TrimSuffix(base, path.Ext(base))
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len([]rune(title)) > maxTitleLen {
		return nil, fmt.Errorf("%w: title is too long", ErrInvalidInput)
	}

	if err := s.checkFolder(ctx, ownerID, folderID); err != nil {
		return nil, err
	}

	if err := s.reserve(ctx, ownerID, size); err != nil {
		return nil, err
	}

	id := uuid.New()
	key := fmt.Sprintf("user_files/%s/%s%s", ownerID, id, strings.ToLower(path.Ext(filename)))

	if err := s.blobs.Upload(ctx, key, contentType, body); err != nil {
		s.release(ctx, ownerID, size)
		return nil, fmt.Errorf("%w: failed to store file: %v", ErrInternal, err)
	}

	item := &domain.Item{
		UUID:      id,
		OwnerID:   ownerID,
		FolderID:  folderID,
		Kind:      kind,
		Title:     title,
		BlobKey:   &key,
		MIMEType:  contentType,
		SizeBytes: size,
	}

	if err := s.items.Create(ctx, item); err != nil {
		s.janitor.Remove(ctx, key)
		s.release(ctx, ownerID, size)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	return item, nil
}

// GetItem возвращает элемент и отмечает обращение к нему.
// Если kind задан, элемент другого вида считается не найденным.
func (s *StorageService) GetItem(ctx context.Context, ownerID string, id uuid.UUID, kind *domain.ItemKind) (*domain.Item, error) {
	item, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if kind != nil && item.Kind != *kind {
		return nil, fmt.Errorf("%w: item does not exist", ErrNotFound)
	}

	if err := s.items.TouchAccess(ctx, ownerID, id); err != nil {
		logrus.Warnf("failed to touch item %s: %v", id, err)
	}

	return item, nil
}

// DownloadItem отдаёт содержимое файла из объектного хранилища
func (s *StorageService) DownloadItem(ctx context.Context, ownerID string, id uuid.UUID, kind *domain.ItemKind) (*domain.Item, s3.S3Object, error) {
	item, err := s.GetItem(ctx, ownerID, id, kind)
	if err != nil {
		return nil, nil, err
	}

	if item.BlobKey == nil {
		return nil, nil, fmt.Errorf("%w: item has no file content", ErrInvalidInput)
	}

	obj, err := s.blobs.GetObject(ctx, *item.BlobKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	return item, obj, nil
}

func (s *StorageService) ListItems(ctx context.Context, ownerID string, filter domain.ItemFilter) (*domain.ItemPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}

	items, total, err := s.items.List(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	totalPages := total / int64(filter.Limit)
	if total%int64(filter.Limit) > 0 {
		totalPages++
	}

	return &domain.ItemPage{
		Items:      items,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// ListRecent возвращает последние просмотренные элементы указанного
// вида (nil — все виды)
func (s *StorageService) ListRecent(ctx context.Context, ownerID string, kind *domain.ItemKind) ([]domain.Item, error) {
	items, err := s.items.ListRecent(ctx, ownerID, kind, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return items, nil
}

// DeleteItem удаляет элемент и возвращает его байты в квоту.
// Объект в хранилище убирается по возможности: его потеря не
// останавливает логическое удаление.
func (s *StorageService) DeleteItem(ctx context.Context, ownerID string, id uuid.UUID, kind *domain.ItemKind) error {
	item, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if kind != nil && item.Kind != *kind {
		return fmt.Errorf("%w: item does not exist", ErrNotFound)
	}

	if item.BlobKey != nil {
		s.janitor.Remove(ctx, *item.BlobKey)
		s.janitor.Remove(ctx, fmt.Sprintf("previews/%s", item.UUID))
	}

	if err := s.items.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: item does not exist", ErrNotFound)
		}
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	s.release(ctx, ownerID, item.SizeBytes)

	return nil
}

// DuplicateItem создаёт копию элемента с суффиксом " (Copy)" в той же папке.
// Место резервируется до копирования объекта; ошибка копирования
// откатывает резерв и не оставляет новых строк.
func (s *StorageService) DuplicateItem(ctx context.Context, ownerID string, id uuid.UUID, kind *domain.ItemKind) (*domain.Item, error) {
	orig, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if kind != nil && orig.Kind != *kind {
		return nil, fmt.Errorf("%w: item does not exist", ErrNotFound)
	}

	if err := s.reserve(ctx, ownerID, orig.SizeBytes); err != nil {
		return nil, err
	}

	var newKey *string
	if orig.BlobKey != nil {
		k, err := s.janitor.Copy(ctx, *orig.BlobKey)
		if err != nil {
			s.release(ctx, ownerID, orig.SizeBytes)
			return nil, fmt.Errorf("%w: failed to duplicate file: %v", ErrInternal, err)
		}
		newKey = &k
	}

	// Суффикс не должен вытолкнуть заголовок за лимит: при
	// необходимости исходный заголовок укорачивается.
	const copySuffix = " (Copy)"
	title := orig.Title + copySuffix
	if len([]rune(title)) > maxTitleLen {
		base := []rune(orig.Title)
		title = string(base[:maxTitleLen-len([]rune(copySuffix))]) + copySuffix
	}

	dup := &domain.Item{
		UUID:      uuid.New(),
		OwnerID:   ownerID,
		FolderID:  orig.FolderID,
		Kind:      orig.Kind,
		Title:     title,
		Content:   orig.Content,
		BlobKey:   newKey,
		MIMEType:  orig.MIMEType,
		SizeBytes: orig.SizeBytes,
	}

	if err := s.items.Create(ctx, dup); err != nil {
		if newKey != nil {
			s.janitor.Remove(ctx, *newKey)
		}
		s.release(ctx, ownerID, orig.SizeBytes)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	return dup, nil
}

// UpdateItemMeta изменяет метаданные файла: заголовок и папку.
// folderID == 0 переносит элемент в корень.
func (s *StorageService) UpdateItemMeta(ctx context.Context, ownerID string, id uuid.UUID, kind *domain.ItemKind, title *string, folderID *int64) (*domain.Item, error) {
	item, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if kind != nil && item.Kind != *kind {
		return nil, fmt.Errorf("%w: item does not exist", ErrNotFound)
	}

	if title != nil && *title != "" {
		if len([]rune(*title)) > maxTitleLen {
			return nil, fmt.Errorf("%w: title is too long", ErrInvalidInput)
		}
		item.Title = *title
	}

	if folderID != nil {
		if *folderID == 0 {
			item.FolderID = nil
		} else {
			if err := s.checkFolder(ctx, ownerID, folderID); err != nil {
				return nil, err
			}
			item.FolderID = folderID
		}
	}

	if err := s.items.Update(ctx, item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: item does not exist", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	return item, nil
}

// ToggleItemFavorite переключает отметку избранного
func (s *StorageService) ToggleItemFavorite(ctx context.Context, ownerID string, id uuid.UUID, kind *domain.ItemKind) (*domain.Item, error) {
	item, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if kind != nil && item.Kind != *kind {
		return nil, fmt.Errorf("%w: item does not exist", ErrNotFound)
	}

	item.IsFavorite = !item.IsFavorite

	if err := s.items.Update(ctx, item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: item does not exist", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	return item, nil
}

func (s *StorageService) getOwned(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Item, error) {
	item, err := s.items.GetByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: item does not exist", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return item, nil
}
