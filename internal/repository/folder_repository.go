package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"notevault/internal/domain"
)

type FolderRepository struct {
	db *sqlx.DB
}

func NewFolderRepository(db *sqlx.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

func (r *FolderRepository) Create(ctx context.Context, folder *domain.Folder) error {
	query := `
        INSERT INTO folders (owner_id, name, parent_folder_id)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		folder.OwnerID,
		folder.Name,
		folder.ParentFolderID,
	).Scan(&folder.ID, &folder.CreatedAt, &folder.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	return nil
}

func (r *FolderRepository) GetByID(ctx context.Context, ownerID string, id int64) (*domain.Folder, error) {
	var folder domain.Folder

	err := r.db.GetContext(ctx, &folder,
		`SELECT * FROM folders WHERE id = $1 AND owner_id = $2`,
		id, ownerID)
	if err != nil {
		return nil, err
	}

	return &folder, nil
}

func (r *FolderRepository) List(ctx context.Context, ownerID string, filter domain.FolderFilter) ([]domain.Folder, error) {
	where := []string{"owner_id = $1"}
	args := []interface{}{ownerID}

	if filter.ParentFolderID != nil {
		args = append(args, *filter.ParentFolderID)
		where = append(where, fmt.Sprintf("parent_folder_id = $%d", len(args)))
	} else if filter.RootOnly {
		where = append(where, "parent_folder_id IS NULL")
	}
	if filter.IsFavorite != nil {
		args = append(args, *filter.IsFavorite)
		where = append(where, fmt.Sprintf("is_favorite = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	query := fmt.Sprintf(
		"SELECT * FROM folders WHERE %s ORDER BY created_at DESC",
		strings.Join(where, " AND "))

	folders := []domain.Folder{}
	if err := r.db.SelectContext(ctx, &folders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	return folders, nil
}

func (r *FolderRepository) Update(ctx context.Context, folder *domain.Folder) error {
	query := `
        UPDATE folders
        SET name = $1,
            is_favorite = $2,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $3 AND owner_id = $4
        RETURNING updated_at`

	return r.db.QueryRowContext(ctx, query,
		folder.Name,
		folder.IsFavorite,
		folder.ID,
		folder.OwnerID,
	).Scan(&folder.UpdatedAt)
}

func (r *FolderRepository) Delete(ctx context.Context, ownerID string, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM folders WHERE id = $1 AND owner_id = $2`,
		id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
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

// NameExists проверяет, есть ли у владельца папка с таким именем среди
// соседей по родителю. excludeID исключает саму папку при переименовании.
func (r *FolderRepository) NameExists(ctx context.Context, ownerID string, parentID *int64, name string, excludeID int64) (bool, error) {
	var exists bool

	err := r.db.GetContext(ctx, &exists, `
        SELECT EXISTS(
            SELECT 1 FROM folders
            WHERE owner_id = $1
              AND parent_folder_id IS NOT DISTINCT FROM $2
              AND name = $3
              AND id != $4
        )`,
		ownerID, parentID, name, excludeID)
	if err != nil {
		return false, fmt.Errorf("failed to check folder name: %w", err)
	}

	return exists, nil
}
