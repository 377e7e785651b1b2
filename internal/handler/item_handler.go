package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"notevault/internal/auth"
	"notevault/internal/domain"
	"notevault/internal/preview"
	"notevault/internal/response"
	"notevault/internal/service"
)

type ItemHandler struct {
	storage  *service.StorageService
	quotas   *service.QuotaService
	previews *preview.Service
}

func NewItemHandler(storage *service.StorageService, quotas *service.QuotaService, previews *preview.Service) *ItemHandler {
	return &ItemHandler{
		storage:  storage,
		quotas:   quotas,
		previews: previews,
	}
}

func itemUUID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "uuid"))
}

// itemFilter собирает фильтр списка из query-параметров
func itemFilter(r *http.Request, kind *domain.ItemKind) domain.ItemFilter {
	q := r.URL.Query()

	filter := domain.ItemFilter{
		Kind:   kind,
		Search: q.Get("search"),
	}

	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if folderID, err := strconv.ParseInt(q.Get("folder_id"), 10, 64); err == nil {
		filter.FolderID = &folderID
	}
	if fav, err := strconv.ParseBool(q.Get("is_favorite")); err == nil {
		filter.IsFavorite = &fav
	}

	return filter
}

func (h *ItemHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.VerifyToken(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		Title    string `json:"title"`
		Content  string `json:"content"`
		FolderID *int64 `json:"folder_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.storage.CreateNote(r.Context(), ownerID, req.FolderID, req.Title, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	storage, err := h.quotas.GetQuotaInfo(r.Context(), ownerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	response.Created(w, "Note created successfully", map[string]interface{}{
		"item":    item,
		"storage": storage,
	})
}

// List отдаёт страницу элементов указанного вида (nil — все виды)
func (h *ItemHandler) List(kind *domain.ItemKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := auth.VerifyToken(r)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "User not authenticated")
			return
		}

		page, err := h.storage.ListItems(r.Context(), ownerID, itemFilter(r, kind))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		response.OK(w, "Items retrieved successfully", page)
	}
}

// Recent отдаёт последние просмотренные элементы указанного вида
// (nil — все виды)
func (h *ItemHandler) Recent(kind *domain.ItemKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := auth.VerifyToken(r)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "User not authenticated")
			return
		}

		items, err := h.storage.ListRecent(r.Context(), ownerID, kind)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		response.OK(w, "Recent items retrieved successfully", map[string]interface{}{"items": items})
	}
}

func (h *ItemHandler) Get(kind domain.ItemKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := auth.VerifyToken(r)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "User not authenticated")
			return
		}

		id, err := itemUUID(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid item id")
			return
		}

		item, err := h.storage.GetItem(r.Context(), ownerID, id, &kind)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		response.OK(w, "Item retrieved successfully", map[string]interface{}{"item": item})
	}
}

// Download отдаёт содержимое файла
func (h *ItemHandler) Download(kind domain.ItemKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := auth.VerifyToken(r)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "User not authenticated")
			return
		}

		id, err := itemUUID(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid item id")
			return
		}

		item, obj, err := h.storage.DownloadItem(r.Context(), ownerID, id, &kind)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		defer obj.Close()

		w.Header().Set("Content-Type", item.MIMEType)
		w.Header().Set("Content-Length", strconv.FormatInt(obj.ContentLength(), 10))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", item.Title))

		if _, err := io.Copy(w, obj); err != nil {
			// Заголовки уже отправлены, остаётся только залогировать
			logDownloadError(item.UUID, err)
		}
	}
}

func (h *ItemHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.VerifyToken(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := itemUUID(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid item id")
		return
	}

	var req struct {
		Title   *string `json:"title"`
		Content *string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.storage.UpdateNote(r.Context(), ownerID, id, req.Title, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	storage, err := h.quotas.GetQuotaInfo(r.Context(), ownerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	response.OK(w, "Note updated successfully", map[string]interface{}{
		"item":    item,
		"storage": storage,
	})
}

// UpdateMeta меняет заголовок и папку файла. folder_id = 0 переносит в корень.
func (h *ItemHandler) UpdateMeta(kind domain.ItemKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := auth.VerifyToken(r)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "User not authenticated")
			return
		}

		id, err := itemUUID(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid item id")
			return
		}

		var req struct {
			Title    *string `json:"title"`
			FolderID *int64  `json:"folder_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		item, err := h.storage.UpdateItemMeta(r.Context(), ownerID, id, &kind, req.Title, req.FolderID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		response.OK(w, "Item updated successfully", map[string]interface{}{"item": item})
	}
}

func (h *ItemHandler) Delete(kind domain.ItemKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := auth.VerifyToken(r)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "User not authenticated")
			return
		}

		id, err := itemUUID(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid item id")
			return
		}

		if err := h.storage.DeleteItem(r.Context(), ownerID, id, &kind); err != nil {
			handleServiceError(w, err)
			return
		}

		storage, err := h.quotas.GetQuotaInfo(r.Context(), ownerID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		response.OK(w, "Item deleted successfully", map[string]interface{}{"storage": storage})
	}
}

func (h *ItemHandler) Duplicate(kind domain.ItemKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := auth.VerifyToken(r)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "User not authenticated")
			return
		}

		id, err := itemUUID(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid item id")
			return
		}

		item, err := h.storage.DuplicateItem(r.Context(), ownerID, id, &kind)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		storage, err := h.quotas.GetQuotaInfo(r.Context(), ownerID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		response.Created(w, "Item duplicated successfully", map[string]interface{}{
			"item":    item,
			"storage": storage,
		})
	}
}

func (h *ItemHandler) ToggleFavorite(kind domain.ItemKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := auth.VerifyToken(r)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "User not authenticated")
			return
		}

		id, err := itemUUID(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid item id")
			return
		}

		item, err := h.storage.ToggleItemFavorite(r.Context(), ownerID, id, &kind)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		message := "Item removed from favorites"
		if item.IsFavorite {
			message = "Item added to favorites"
		}

		response.OK(w, message, map[string]interface{}{"item": item})
	}
}

// Upload принимает multipart-файл указанного вида
func (h *ItemHandler) Upload(kind domain.ItemKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := auth.VerifyToken(r)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "User not authenticated")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "No file provided")
			return
		}
		defer file.Close()

		var folderID *int64
		if raw := r.FormValue("folder_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "Invalid folder id")
				return
			}
			folderID = &id
		}

		item, err := h.storage.UploadFile(r.Context(), ownerID, kind, folderID,
			r.FormValue("title"), header.Filename, header.Header.Get("Content-Type"),
			header.Size, file)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		storage, err := h.quotas.GetQuotaInfo(r.Context(), ownerID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		response.Created(w, "File uploaded successfully", map[string]interface{}{
			"item":    item,
			"storage": storage,
		})
	}
}

// Preview отдаёт миниатюру картинки
func (h *ItemHandler) Preview(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.VerifyToken(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := itemUUID(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid item id")
		return
	}

	item, err := h.storage.GetItem(r.Context(), ownerID, id, nil)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if item.Kind != domain.KindImage {
		response.Error(w, http.StatusBadRequest, "Preview is only available for images")
		return
	}

	thumb, err := h.previews.GetPreview(r.Context(), item)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer thumb.Close()

	w.Header().Set("Content-Type", preview.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")

	if _, err := io.Copy(w, thumb); err != nil {
		logDownloadError(item.UUID, err)
	}
}
