package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetQuotaInfo(t *testing.T) {
	svc := NewQuotaService(&memQuotas{used: 500, limit: 1000})

	info, err := svc.GetQuotaInfo(context.Background(), testOwner)
	require.NoError(t, err)

	assert.Equal(t, int64(500), info.UsedBytes)
	assert.Equal(t, int64(1000), info.LimitBytes)
	assert.Equal(t, int64(500), info.AvailableBytes)
	assert.Equal(t, float64(50), info.PercentUsed)
	assert.Equal(t, "500 B", info.UsedFormatted)
}

func TestGetQuotaInfoZeroLimit(t *testing.T) {
	svc := NewQuotaService(&memQuotas{used: 0, limit: 0})

	info, err := svc.GetQuotaInfo(context.Background(), testOwner)
	require.NoError(t, err)

	assert.Equal(t, float64(0), info.PercentUsed)
	assert.Equal(t, int64(0), info.AvailableBytes)
}

func TestUpdateQuotaLimit(t *testing.T) {
	quotas := &memQuotas{used: 500, limit: 1000}
	svc := NewQuotaService(quotas)

	require.NoError(t, svc.UpdateQuotaLimit(context.Background(), testOwner, 2000))
	assert.Equal(t, int64(2000), quotas.limit)

	assert.ErrorIs(t, svc.UpdateQuotaLimit(context.Background(), testOwner, -1), ErrInvalidInput)
}

// Уже занятое место выше нового лимита остаётся, но новые записи блокируются
func TestShrinkLimitBelowUsage(t *testing.T) {
	quotas := &memQuotas{used: 800, limit: 1000}
	svc := NewQuotaService(quotas)

	require.NoError(t, svc.UpdateQuotaLimit(context.Background(), testOwner, 500))

	info, err := svc.GetQuotaInfo(context.Background(), testOwner)
	require.NoError(t, err)
	assert.Equal(t, int64(800), info.UsedBytes)
	assert.Equal(t, int64(0), info.AvailableBytes)

	ok, err := quotas.Reserve(context.Background(), testOwner, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
