package service

import (
	"context"

	"github.com/google/uuid"

	"notevault/internal/domain"
)

// Интерфейсы репозиториев, с которыми работают сервисы.
// Реализации в internal/repository; тесты подставляют in-memory варианты.

type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) error
	GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Item, error)
	GetByFolder(ctx context.Context, ownerID string, folderID int64) ([]domain.Item, error)
	List(ctx context.Context, ownerID string, filter domain.ItemFilter) ([]domain.Item, int64, error)
	ListRecent(ctx context.Context, ownerID string, kind *domain.ItemKind, limit int) ([]domain.Item, error)
	Update(ctx context.Context, item *domain.Item) error
	TouchAccess(ctx context.Context, ownerID string, id uuid.UUID) error
	Delete(ctx context.Context, ownerID string, id uuid.UUID) error
	DeleteByFolder(ctx context.Context, ownerID string, folderID int64) (int64, error)
}

type FolderRepository interface {
	Create(ctx context.Context, folder *domain.Folder) error
	GetByID(ctx context.Context, ownerID string, id int64) (*domain.Folder, error)
	List(ctx context.Context, ownerID string, filter domain.FolderFilter) ([]domain.Folder, error)
	Update(ctx context.Context, folder *domain.Folder) error
	Delete(ctx context.Context, ownerID string, id int64) error
	NameExists(ctx context.Context, ownerID string, parentID *int64, name string, excludeID int64) (bool, error)
}

type QuotaRepository interface {
	GetQuota(ctx context.Context, ownerID string) (*domain.StorageQuota, error)
	Reserve(ctx context.Context, ownerID string, bytes int64) (bool, error)
	Release(ctx context.Context, ownerID string, bytes int64) error
	UpdateQuotaLimit(ctx context.Context, ownerID string, newLimit int64) error
	UsageByKind(ctx context.Context, ownerID string) (map[domain.ItemKind]int64, error)
}
