package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"notevault/internal/domain"
	"notevault/internal/quota"
	"notevault/internal/service/s3"
)

// In-memory реализации зависимостей сервисов

type memItems struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*domain.Item

	createCalls     int
	failCreateAfter int // вызов Create с этим номером вернёт ошибку, 0 — никогда
}

func newMemItems() *memItems {
	return &memItems{byID: map[uuid.UUID]*domain.Item{}}
}

func (m *memItems) Create(_ context.Context, item *domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	if m.failCreateAfter > 0 && m.createCalls >= m.failCreateAfter {
		return fmt.Errorf("simulated create failure")
	}

	now := time.Now()
	item.LastAccessedAt = now
	item.CreatedAt = now
	item.UpdatedAt = now

	copied := *item
	m.byID[item.UUID] = &copied
	return nil
}

func (m *memItems) GetByID(_ context.Context, ownerID string, id uuid.UUID) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.byID[id]
	if !ok || item.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	copied := *item
	return &copied, nil
}

func (m *memItems) GetByFolder(_ context.Context, ownerID string, folderID int64) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := []domain.Item{}
	for _, item := range m.byID {
		if item.OwnerID == ownerID && item.FolderID != nil && *item.FolderID == folderID {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (m *memItems) List(_ context.Context, ownerID string, filter domain.ItemFilter) ([]domain.Item, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := []domain.Item{}
	for _, item := range m.byID {
		if item.OwnerID != ownerID {
			continue
		}
		if filter.Kind != nil && item.Kind != *filter.Kind {
			continue
		}
		items = append(items, *item)
	}
	return items, int64(len(items)), nil
}

func (m *memItems) ListRecent(_ context.Context, ownerID string, kind *domain.ItemKind, _ int) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := []domain.Item{}
	for _, item := range m.byID {
		if item.OwnerID != ownerID {
			continue
		}
		if kind != nil && item.Kind != *kind {
			continue
		}
		items = append(items, *item)
	}
	return items, nil
}

func (m *memItems) Update(_ context.Context, item *domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.byID[item.UUID]
	if !ok || existing.OwnerID != item.OwnerID {
		return sql.ErrNoRows
	}
	item.UpdatedAt = time.Now()
	copied := *item
	m.byID[item.UUID] = &copied
	return nil
}

func (m *memItems) TouchAccess(_ context.Context, ownerID string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item, ok := m.byID[id]; ok && item.OwnerID == ownerID {
		item.LastAccessedAt = time.Now()
	}
	return nil
}

func (m *memItems) Delete(_ context.Context, ownerID string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.byID[id]
	if !ok || item.OwnerID != ownerID {
		return sql.ErrNoRows
	}
	delete(m.byID, id)
	return nil
}

func (m *memItems) DeleteByFolder(_ context.Context, ownerID string, folderID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, item := range m.byID {
		if item.OwnerID == ownerID && item.FolderID != nil && *item.FolderID == folderID {
			delete(m.byID, id)
			deleted++
		}
	}
	return deleted, nil
}

type memFolders struct {
	byID   map[int64]*domain.Folder
	nextID int64

	failCreate bool
}

func newMemFolders() *memFolders {
	return &memFolders{byID: map[int64]*domain.Folder{}, nextID: 1}
}

func (m *memFolders) Create(_ context.Context, folder *domain.Folder) error {
	if m.failCreate {
		return fmt.Errorf("simulated folder create failure")
	}

	folder.ID = m.nextID
	m.nextID++
	now := time.Now()
	folder.CreatedAt = now
	folder.UpdatedAt = now

	copied := *folder
	m.byID[folder.ID] = &copied
	return nil
}

func (m *memFolders) GetByID(_ context.Context, ownerID string, id int64) (*domain.Folder, error) {
	folder, ok := m.byID[id]
	if !ok || folder.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	copied := *folder
	return &copied, nil
}

func (m *memFolders) List(_ context.Context, ownerID string, filter domain.FolderFilter) ([]domain.Folder, error) {
	folders := []domain.Folder{}
	for _, folder := range m.byID {
		if folder.OwnerID != ownerID {
			continue
		}
		if filter.ParentFolderID != nil {
			if folder.ParentFolderID == nil || *folder.ParentFolderID != *filter.ParentFolderID {
				continue
			}
		}
		folders = append(folders, *folder)
	}
	return folders, nil
}

func (m *memFolders) Update(_ context.Context, folder *domain.Folder) error {
	existing, ok := m.byID[folder.ID]
	if !ok || existing.OwnerID != folder.OwnerID {
		return sql.ErrNoRows
	}
	copied := *folder
	m.byID[folder.ID] = &copied
	return nil
}

func (m *memFolders) Delete(_ context.Context, ownerID string, id int64) error {
	folder, ok := m.byID[id]
	if !ok || folder.OwnerID != ownerID {
		return sql.ErrNoRows
	}
	delete(m.byID, id)
	return nil
}

func (m *memFolders) NameExists(_ context.Context, ownerID string, parentID *int64, name string, excludeID int64) (bool, error) {
	for _, folder := range m.byID {
		if folder.OwnerID != ownerID || folder.ID == excludeID || folder.Name != name {
			continue
		}
		switch {
		case parentID == nil && folder.ParentFolderID == nil:
			return true, nil
		case parentID != nil && folder.ParentFolderID != nil && *parentID == *folder.ParentFolderID:
			return true, nil
		}
	}
	return false, nil
}

// memQuotas сериализует операции мьютексом, как это делает
// условный UPDATE в Postgres.
type memQuotas struct {
	mu    sync.Mutex
	used  int64
	limit int64
}

func (m *memQuotas) GetQuota(_ context.Context, ownerID string) (*domain.StorageQuota, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return &domain.StorageQuota{
		OwnerID:         ownerID,
		UsedBytes:       m.used,
		TotalBytesLimit: m.limit,
	}, nil
}

func (m *memQuotas) Reserve(_ context.Context, _ string, bytes int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !quota.Fits(m.used, m.limit, bytes) {
		return false, nil
	}
	m.used += bytes
	return true, nil
}

func (m *memQuotas) Release(_ context.Context, _ string, bytes int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.used = quota.ApplyDelta(m.used, -bytes)
	return nil
}

func (m *memQuotas) UpdateQuotaLimit(_ context.Context, _ string, newLimit int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.limit = newLimit
	return nil
}

func (m *memQuotas) UsageByKind(_ context.Context, _ string) (map[domain.ItemKind]int64, error) {
	return map[domain.ItemKind]int64{}, nil
}

type memObject struct {
	io.ReadCloser
	length      int64
	contentType string
}

func (o *memObject) ContentLength() int64 { return o.length }
func (o *memObject) ContentType() string  { return o.contentType }

type memStorage struct {
	objects map[string][]byte

	failCopy bool
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) Upload(_ context.Context, key string, _ string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memStorage) GetObject(_ context.Context, key string) (s3.S3Object, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", key)
	}
	return &memObject{
		ReadCloser: io.NopCloser(bytes.NewReader(data)),
		length:     int64(len(data)),
	}, nil
}

func (m *memStorage) CopyObject(_ context.Context, srcKey, dstKey string) error {
	if m.failCopy {
		return fmt.Errorf("simulated copy failure")
	}
	data, ok := m.objects[srcKey]
	if !ok {
		return fmt.Errorf("object not found: %s", srcKey)
	}
	m.objects[dstKey] = append([]byte(nil), data...)
	return nil
}

func (m *memStorage) DeleteObject(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memStorage) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}
