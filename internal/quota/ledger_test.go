package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAvailable(t *testing.T) {
	tests := []struct {
		name  string
		used  int64
		limit int64
		want  int64
	}{
		{"empty", 0, 1000, 1000},
		{"partial", 600, 1000, 400},
		{"full", 1000, 1000, 0},
		{"over limit after admin shrink", 1500, 1000, 0},
		{"zero limit", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Available(tt.used, tt.limit))
		})
	}
}

func TestPercentUsed(t *testing.T) {
	tests := []struct {
		name  string
		used  int64
		limit int64
		want  float64
	}{
		{"empty", 0, 1000, 0},
		{"half", 500, 1000, 50},
		{"full", 1000, 1000, 100},
		{"rounds to hundredths", 1, 3, 33.33},
		{"zero limit gives zero not NaN", 500, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PercentUsed(tt.used, tt.limit))
		})
	}
}

func TestFits(t *testing.T) {
	assert.True(t, Fits(0, 1000, 1000), "exact fit is allowed")
	assert.True(t, Fits(600, 1000, 400))
	assert.False(t, Fits(600, 1000, 401))
	assert.True(t, Fits(600, 1000, 0), "zero delta always fits under limit")
	assert.False(t, Fits(1500, 1000, 0), "already over limit")
	assert.True(t, Fits(1500, 1000, -600), "shrink back under limit")
}

func TestApplyDelta(t *testing.T) {
	assert.Equal(t, int64(700), ApplyDelta(500, 200))
	assert.Equal(t, int64(300), ApplyDelta(500, -200))
	assert.Equal(t, int64(0), ApplyDelta(500, -500))
	assert.Equal(t, int64(0), ApplyDelta(100, -500), "clamped at zero")
	assert.Equal(t, int64(0), ApplyDelta(0, -1))
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{-5, "0 B"},
		{512, "512 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{2621440, "2.5 MB"},
		{16106127360, "15 GB"},
		{1099511627776, "1 TB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.n))
	}
}
