package domain

import (
	"time"

	"github.com/google/uuid"
)

// ItemKind различает текстовые заметки и загруженные файлы
type ItemKind string

const (
	KindNote  ItemKind = "note"
	KindImage ItemKind = "image"
	KindPDF   ItemKind = "pdf"
)

func (k ItemKind) Valid() bool {
	switch k {
	case KindNote, KindImage, KindPDF:
		return true
	}
	return false
}

// HasBlob сообщает, хранится ли содержимое элемента в объектном хранилище
func (k ItemKind) HasBlob() bool {
	return k == KindImage || k == KindPDF
}

type Item struct {
	UUID           uuid.UUID `json:"uuid" db:"uuid"`
	OwnerID        string    `json:"owner_id" db:"owner_id"`
	FolderID       *int64    `json:"folder_id,omitempty" db:"folder_id"`
	Kind           ItemKind  `json:"kind" db:"kind"`
	Title          string    `json:"title" db:"title"`
	Content        string    `json:"content,omitempty" db:"content"`
	BlobKey        *string   `json:"-" db:"blob_key"`
	MIMEType       string    `json:"mime_type,omitempty" db:"mime_type"`
	SizeBytes      int64     `json:"size_bytes" db:"size_bytes"`
	IsFavorite     bool      `json:"is_favorite" db:"is_favorite"`
	LastAccessedAt time.Time `json:"last_accessed_at" db:"last_accessed_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// ItemFilter описывает параметры выборки списка элементов
type ItemFilter struct {
	Kind       *ItemKind
	FolderID   *int64
	IsFavorite *bool
	Search     string
	Page       int
	Limit      int
}

type ItemPage struct {
	Items      []Item `json:"items"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalItems int64  `json:"total_items"`
	TotalPages int64  `json:"total_pages"`
}
