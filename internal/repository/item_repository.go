package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"notevault/internal/domain"
)

type ItemRepository struct {
	db *sqlx.DB
}

func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	query := `
        INSERT INTO items (uuid, owner_id, folder_id, kind, title, content, blob_key, mime_type, size_bytes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING last_accessed_at, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		item.UUID,
		item.OwnerID,
		item.FolderID,
		item.Kind,
		item.Title,
		item.Content,
		item.BlobKey,
		item.MIMEType,
		item.SizeBytes,
	).Scan(&item.LastAccessedAt, &item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

// GetByID ищет элемент только среди принадлежащих владельцу:
// чужой uuid неотличим от несуществующего.
func (r *ItemRepository) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Item, error) {
	var item domain.Item

	err := r.db.GetContext(ctx, &item,
		`SELECT * FROM items WHERE uuid = $1 AND owner_id = $2`,
		id, ownerID)
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *ItemRepository) GetByFolder(ctx context.Context, ownerID string, folderID int64) ([]domain.Item, error) {
	items := []domain.Item{}

	err := r.db.SelectContext(ctx, &items,
		`SELECT * FROM items WHERE owner_id = $1 AND folder_id = $2 ORDER BY created_at DESC`,
		ownerID, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get folder items: %w", err)
	}

	return items, nil
}

// List возвращает страницу элементов владельца с общим количеством
// под фильтр (для пагинации).
func (r *ItemRepository) List(ctx context.Context, ownerID string, filter domain.ItemFilter) ([]domain.Item, int64, error) {
	where := []string{"owner_id = $1"}
	args := []interface{}{ownerID}

	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.FolderID != nil {
		args = append(args, *filter.FolderID)
		where = append(where, fmt.Sprintf("folder_id = $%d", len(args)))
	}
	if filter.IsFavorite != nil {
		args = append(args, *filter.IsFavorite)
		where = append(where, fmt.Sprintf("is_favorite = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR content ILIKE $%d)", len(args), len(args)))
	}

	cond := strings.Join(where, " AND ")

	var total int64
	err := r.db.GetContext(ctx, &total,
		fmt.Sprintf("SELECT COUNT(*) FROM items WHERE %s", cond), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(
		"SELECT * FROM items WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		cond, len(args)-1, len(args))

	items := []domain.Item{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}

	return items, total, nil
}

// ListRecent возвращает последние просмотренные элементы,
// при заданном kind — только этого вида.
func (r *ItemRepository) ListRecent(ctx context.Context, ownerID string, kind *domain.ItemKind, limit int) ([]domain.Item, error) {
	items := []domain.Item{}

	query := `SELECT * FROM items WHERE owner_id = $1 ORDER BY last_accessed_at DESC LIMIT $2`
	args := []interface{}{ownerID, limit}
	if kind != nil {
		query = `SELECT * FROM items WHERE owner_id = $1 AND kind = $2 ORDER BY last_accessed_at DESC LIMIT $3`
		args = []interface{}{ownerID, *kind, limit}
	}

	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list recent items: %w", err)
	}

	return items, nil
}

func (r *ItemRepository) Update(ctx context.Context, item *domain.Item) error {
	query := `
        UPDATE items
        SET folder_id = $1,
            title = $2,
            content = $3,
            size_bytes = $4,
            is_favorite = $5,
            updated_at = CURRENT_TIMESTAMP
        WHERE uuid = $6 AND owner_id = $7
        RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		item.FolderID,
		item.Title,
		item.Content,
		item.SizeBytes,
		item.IsFavorite,
		item.UUID,
		item.OwnerID,
	).Scan(&item.UpdatedAt)

	if err != nil {
		return err
	}

	return nil
}

// TouchAccess обновляет отметку последнего обращения
func (r *ItemRepository) TouchAccess(ctx context.Context, ownerID string, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE items SET last_accessed_at = CURRENT_TIMESTAMP WHERE uuid = $1 AND owner_id = $2`,
		id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to touch item: %w", err)
	}
	return nil
}

func (r *ItemRepository) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM items WHERE uuid = $1 AND owner_id = $2`,
		id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// DeleteByFolder удаляет все элементы папки, возвращает число удалённых
func (r *ItemRepository) DeleteByFolder(ctx context.Context, ownerID string, folderID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM items WHERE owner_id = $1 AND folder_id = $2`,
		ownerID, folderID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete folder items: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}
