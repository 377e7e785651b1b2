package service

import (
	"errors"
	"fmt"

	"notevault/internal/quota"
)

var (
	// ErrNotFound возвращается и для несуществующего id, и для чужого:
	// наружу эти случаи не различаются.
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)

// QuotaExceededError возвращается, когда операция не помещается в лимит
type QuotaExceededError struct {
	RequiredBytes  int64
	AvailableBytes int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("storage limit exceeded: you need %s but only %s is available",
		quota.FormatBytes(e.RequiredBytes), quota.FormatBytes(e.AvailableBytes))
}
