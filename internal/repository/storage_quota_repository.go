package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"notevault/internal/domain"
)

type StorageQuotaRepository struct {
	db *sqlx.DB
}

func NewStorageQuotaRepository(db *sqlx.DB) *StorageQuotaRepository {
	return &StorageQuotaRepository{db: db}
}

func (r *StorageQuotaRepository) GetQuota(ctx context.Context, ownerID string) (*domain.StorageQuota, error) {
	var quota domain.StorageQuota

	err := r.db.GetContext(ctx, &quota,
		`SELECT * FROM storage_quotas WHERE owner_id = $1`,
		ownerID)

	if err != nil {
		// Если квоты ещё нет, создаём новую с дефолтным лимитом
		if err == sql.ErrNoRows {
			quota = domain.StorageQuota{
				OwnerID:         ownerID,
				TotalBytesLimit: domain.DefaultQuotaBytes,
				UsedBytes:       0,
			}

			err = r.Create(ctx, &quota)
			if err != nil {
				return nil, fmt.Errorf("failed to create quota: %w", err)
			}
			return &quota, nil
		}
		return nil, fmt.Errorf("failed to get quota: %w", err)
	}

	return &quota, nil
}

func (r *StorageQuotaRepository) Create(ctx context.Context, quota *domain.StorageQuota) error {
	query := `
        INSERT INTO storage_quotas (owner_id, total_bytes_limit, used_bytes)
        VALUES ($1, $2, $3)
        ON CONFLICT (owner_id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP
        RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		quota.OwnerID,
		quota.TotalBytesLimit,
		quota.UsedBytes,
	).Scan(&quota.ID, &quota.CreatedAt, &quota.UpdatedAt)
}

// Reserve атомарно прибавляет bytes к занятому месту, только если
// новый итог не превышает лимит. Возвращает false, если места не хватило:
// условие проверяется тем же UPDATE, что и запись, поэтому параллельные
// резервации не могут совместно пробить лимит.
func (r *StorageQuotaRepository) Reserve(ctx context.Context, ownerID string, bytes int64) (bool, error) {
	query := `
        UPDATE storage_quotas
        SET used_bytes = used_bytes + $1,
            updated_at = CURRENT_TIMESTAMP
        WHERE owner_id = $2
          AND used_bytes + $1 <= total_bytes_limit`

	result, err := r.db.ExecContext(ctx, query, bytes, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to reserve space: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

// Release возвращает bytes в квоту. Счётчик прижимается к нулю,
// чтобы гонка удалений не увела баланс в минус.
func (r *StorageQuotaRepository) Release(ctx context.Context, ownerID string, bytes int64) error {
	query := `
        UPDATE storage_quotas
        SET used_bytes = GREATEST(0, used_bytes - $1),
            updated_at = CURRENT_TIMESTAMP
        WHERE owner_id = $2`

	result, err := r.db.ExecContext(ctx, query, bytes, ownerID)
	if err != nil {
		return fmt.Errorf("failed to release space: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("quota not found for owner: %s", ownerID)
	}

	return nil
}

func (r *StorageQuotaRepository) UpdateQuotaLimit(ctx context.Context, ownerID string, newLimit int64) error {
	query := `
        UPDATE storage_quotas
        SET total_bytes_limit = $1,
            updated_at = CURRENT_TIMESTAMP
        WHERE owner_id = $2`

	result, err := r.db.ExecContext(ctx, query, newLimit, ownerID)
	if err != nil {
		return fmt.Errorf("failed to update quota limit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("quota not found for owner: %s", ownerID)
	}

	return nil
}

// UsageByKind возвращает суммарный размер элементов владельца по типам
func (r *StorageQuotaRepository) UsageByKind(ctx context.Context, ownerID string) (map[domain.ItemKind]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT kind, COALESCE(SUM(size_bytes), 0)
        FROM items
        WHERE owner_id = $1
        GROUP BY kind`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get usage breakdown: %w", err)
	}
	defer rows.Close()

	usage := make(map[domain.ItemKind]int64)
	for rows.Next() {
		var kind domain.ItemKind
		var total int64
		if err := rows.Scan(&kind, &total); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		usage[kind] = total
	}

	return usage, rows.Err()
}
