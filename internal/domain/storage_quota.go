package domain

import "time"

// DefaultQuotaBytes — лимит хранилища по умолчанию (15 GiB)
const DefaultQuotaBytes int64 = 16106127360

type StorageQuota struct {
	ID              int64     `json:"id" db:"id"`
	OwnerID         string    `json:"owner_id" db:"owner_id"`
	TotalBytesLimit int64     `json:"total_bytes_limit" db:"total_bytes_limit"`
	UsedBytes       int64     `json:"used_bytes" db:"used_bytes"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

type QuotaInfo struct {
	UsedBytes          int64              `json:"used_bytes"`
	LimitBytes         int64              `json:"limit_bytes"`
	AvailableBytes     int64              `json:"available_bytes"`
	PercentUsed        float64            `json:"percent_used"`
	UsedFormatted      string             `json:"used_formatted"`
	LimitFormatted     string             `json:"limit_formatted"`
	AvailableFormatted string             `json:"available_formatted"`
	Breakdown          map[ItemKind]int64 `json:"breakdown_by_kind"`
}
