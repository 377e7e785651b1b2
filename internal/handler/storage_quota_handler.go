package handler

import (
	"encoding/json"
	"net/http"

	"notevault/internal/auth"
	"notevault/internal/response"
	"notevault/internal/service"
)

type StorageQuotaHandler struct {
	quotas *service.QuotaService
}

func NewStorageQuotaHandler(quotas *service.QuotaService) *StorageQuotaHandler {
	return &StorageQuotaHandler{quotas: quotas}
}

// GetStats отдаёт состояние квоты с разбивкой по видам элементов
func (h *StorageQuotaHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.VerifyToken(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	info, err := h.quotas.GetQuotaInfo(r.Context(), ownerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	response.OK(w, "Storage stats retrieved successfully", map[string]interface{}{"storage": info})
}

// UpdateLimit меняет лимит хранилища. user_id в теле позволяет
// администрировать чужую квоту; проверка административных прав
// остаётся на внешнем шлюзе.
func (h *StorageQuotaHandler) UpdateLimit(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.VerifyToken(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		UserID   string `json:"user_id"`
		NewLimit int64  `json:"new_limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	target := ownerID
	if req.UserID != "" {
		target = req.UserID
	}

	if err := h.quotas.UpdateQuotaLimit(r.Context(), target, req.NewLimit); err != nil {
		handleServiceError(w, err)
		return
	}

	info, err := h.quotas.GetQuotaInfo(r.Context(), target)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	response.OK(w, "Storage limit updated successfully", map[string]interface{}{"storage": info})
}
