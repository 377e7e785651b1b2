package service

import (
	"context"
	"fmt"

	"notevault/internal/domain"
	"notevault/internal/quota"
)

// QuotaService — чтение состояния квоты и административное изменение лимита
type QuotaService struct {
	quotas QuotaRepository
}

func NewQuotaService(quotas QuotaRepository) *QuotaService {
	return &QuotaService{quotas: quotas}
}

func (s *QuotaService) GetQuotaInfo(ctx context.Context, ownerID string) (*domain.QuotaInfo, error) {
	q, err := s.quotas.GetQuota(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	breakdown, err := s.quotas.UsageByKind(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	available := quota.Available(q.UsedBytes, q.TotalBytesLimit)

	return &domain.QuotaInfo{
		UsedBytes:          q.UsedBytes,
		LimitBytes:         q.TotalBytesLimit,
		AvailableBytes:     available,
		PercentUsed:        quota.PercentUsed(q.UsedBytes, q.TotalBytesLimit),
		UsedFormatted:      quota.FormatBytes(q.UsedBytes),
		LimitFormatted:     quota.FormatBytes(q.TotalBytesLimit),
		AvailableFormatted: quota.FormatBytes(available),
		Breakdown:          breakdown,
	}, nil
}

// UpdateQuotaLimit меняет лимит пользователя. Уже занятое место не
// трогается: used выше нового лимита просто блокирует новые записи.
func (s *QuotaService) UpdateQuotaLimit(ctx context.Context, ownerID string, newLimit int64) error {
	if newLimit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidInput)
	}

	// Гарантируем, что строка квоты существует
	if _, err := s.quotas.GetQuota(ctx, ownerID); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if err := s.quotas.UpdateQuotaLimit(ctx, ownerID, newLimit); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	return nil
}
