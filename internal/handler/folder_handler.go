package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"notevault/internal/auth"
	"notevault/internal/domain"
	"notevault/internal/response"
	"notevault/internal/service"
)

type FolderHandler struct {
	folders *service.FolderService
	quotas  *service.QuotaService
}

func NewFolderHandler(folders *service.FolderService, quotas *service.QuotaService) *FolderHandler {
	return &FolderHandler{folders: folders, quotas: quotas}
}

func folderID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.VerifyToken(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		Name           string `json:"name"`
		ParentFolderID *int64 `json:"parent_folder_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	folder, err := h.folders.CreateFolder(r.Context(), ownerID, req.Name, req.ParentFolderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	response.Created(w, "Folder created successfully", map[string]interface{}{"folder": folder})
}

func (h *FolderHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.VerifyToken(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	q := r.URL.Query()
	filter := domain.FolderFilter{Search: q.Get("search")}

	if parentID, err := strconv.ParseInt(q.Get("parent_folder_id"), 10, 64); err == nil {
		filter.ParentFolderID = &parentID
	} else if q.Get("root_only") == "true" {
		filter.RootOnly = true
	}
	if fav, err := strconv.ParseBool(q.Get("is_favorite")); err == nil {
		filter.IsFavorite = &fav
	}

	folders, err := h.folders.ListFolders(r.Context(), ownerID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	response.OK(w, "Folders retrieved successfully", map[string]interface{}{"folders": folders})
}

func (h *FolderHandler) GetFolderContent(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.VerifyToken(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := folderID(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid folder id")
		return
	}

	content, err := h.folders.GetFolderContent(r.Context(), ownerID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	response.OK(w, "Folder retrieved successfully", content)
}

func (h *FolderHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.VerifyToken(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := folderID(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid folder id")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	folder, err := h.folders.RenameFolder(r.Context(), ownerID, id, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	response.OK(w, "Folder renamed successfully", map[string]interface{}{"folder": folder})
}

// DeleteFolder удаляет папку с содержимым и отчитывается об
// освобождённом месте
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.VerifyToken(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := folderID(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid folder id")
		return
	}

	result, err := h.folders.DeleteFolder(r.Context(), ownerID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	storage, err := h.quotas.GetQuotaInfo(r.Context(), ownerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	response.OK(w, "Folder deleted successfully", map[string]interface{}{
		"result":  result,
		"storage": storage,
	})
}

func (h *FolderHandler) DuplicateFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.VerifyToken(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := folderID(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid folder id")
		return
	}

	result, err := h.folders.DuplicateFolder(r.Context(), ownerID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	storage, err := h.quotas.GetQuotaInfo(r.Context(), ownerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	response.Created(w, "Folder duplicated successfully", map[string]interface{}{
		"result":  result,
		"storage": storage,
	})
}

func (h *FolderHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.VerifyToken(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := folderID(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid folder id")
		return
	}

	folder, err := h.folders.ToggleFolderFavorite(r.Context(), ownerID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	message := "Folder removed from favorites"
	if folder.IsFavorite {
		message = "Folder added to favorites"
	}

	response.OK(w, message, map[string]interface{}{"folder": folder})
}
