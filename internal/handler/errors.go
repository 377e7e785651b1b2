package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"notevault/internal/quota"
	"notevault/internal/response"
	"notevault/internal/service"
)

// handleServiceError переводит ошибки сервисного слоя в HTTP-статусы
func handleServiceError(w http.ResponseWriter, err error) {
	var quotaErr *service.QuotaExceededError

	switch {
	case errors.As(err, &quotaErr):
		response.ErrorWithData(w, http.StatusBadRequest,
			fmt.Sprintf("Storage limit exceeded. You need %s but only %s is available",
				quota.FormatBytes(quotaErr.RequiredBytes),
				quota.FormatBytes(quotaErr.AvailableBytes)),
			map[string]int64{
				"required_bytes":  quotaErr.RequiredBytes,
				"available_bytes": quotaErr.AvailableBytes,
			})
	case errors.Is(err, service.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, service.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, err.Error())
	default:
		logrus.Errorf("internal error: %v", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

// logDownloadError фиксирует обрыв потока, когда заголовки уже ушли клиенту
func logDownloadError(id uuid.UUID, err error) {
	logrus.Warnf("failed to stream content for item %s: %v", id, err)
}
