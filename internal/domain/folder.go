package domain

import "time"

type Folder struct {
	ID             int64     `json:"id" db:"id"`
	OwnerID        string    `json:"owner_id" db:"owner_id"`
	Name           string    `json:"name" db:"name"`
	ParentFolderID *int64    `json:"parent_folder_id,omitempty" db:"parent_folder_id"`
	IsFavorite     bool      `json:"is_favorite" db:"is_favorite"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// FolderFilter описывает параметры выборки списка папок
type FolderFilter struct {
	ParentFolderID *int64
	RootOnly       bool
	IsFavorite     *bool
	Search         string
}

type FolderContent struct {
	Folder     Folder   `json:"folder"`
	Items      []Item   `json:"items"`
	Subfolders []Folder `json:"subfolders"`
}

// CascadeResult — итог каскадного удаления папки
type CascadeResult struct {
	DeletedItemCount int64 `json:"deleted_item_count"`
	FreedBytes       int64 `json:"freed_bytes"`
}

type FolderDuplicateResult struct {
	Folder              Folder `json:"folder"`
	DuplicatedNoteCount int    `json:"duplicated_note_count"`
}
