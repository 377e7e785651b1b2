package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"notevault/internal/domain"
	"notevault/internal/quota"
)

// FolderService — операции над папками, включая каскадное удаление
// и дублирование с содержимым.
type FolderService struct {
	folders FolderRepository
	items   ItemRepository
	quotas  QuotaRepository
	janitor *BlobJanitor
}

func NewFolderService(folders FolderRepository, items ItemRepository, quotas QuotaRepository, janitor *BlobJanitor) *FolderService {
	return &FolderService{
		folders: folders,
		items:   items,
		quotas:  quotas,
		janitor: janitor,
	}
}

func (s *FolderService) CreateFolder(ctx context.Context, ownerID, name string, parentID *int64) (*domain.Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: folder name is required", ErrInvalidInput)
	}

	if parentID != nil {
		if _, err := s.getOwned(ctx, ownerID, *parentID); err != nil {
			return nil, err
		}
	}

	exists, err := s.folders.NameExists(ctx, ownerID, parentID, name, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: folder with this name already exists", ErrInvalidInput)
	}

	folder := &domain.Folder{
		OwnerID:        ownerID,
		Name:           name,
		ParentFolderID: parentID,
	}

	if err := s.folders.Create(ctx, folder); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	return folder, nil
}

func (s *FolderService) RenameFolder(ctx context.Context, ownerID string, id int64, name string) (*domain.Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: folder name is required", ErrInvalidInput)
	}

	folder, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.folders.NameExists(ctx, ownerID, folder.ParentFolderID, name, folder.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: folder with this name already exists", ErrInvalidInput)
	}

	folder.Name = name

	if err := s.folders.Update(ctx, folder); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	return folder, nil
}

func (s *FolderService) ToggleFolderFavorite(ctx context.Context, ownerID string, id int64) (*domain.Folder, error) {
	folder, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	folder.IsFavorite = !folder.IsFavorite

	if err := s.folders.Update(ctx, folder); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	return folder, nil
}

func (s *FolderService) ListFolders(ctx context.Context, ownerID string, filter domain.FolderFilter) ([]domain.Folder, error) {
	folders, err := s.folders.List(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return folders, nil
}

// GetFolderContent возвращает папку вместе с её элементами и подпапками
func (s *FolderService) GetFolderContent(ctx context.Context, ownerID string, id int64) (*domain.FolderContent, error) {
	folder, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	items, err := s.items.GetByFolder(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	subfolders, err := s.folders.List(ctx, ownerID, domain.FolderFilter{ParentFolderID: &id})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	return &domain.FolderContent{
		Folder:     *folder,
		Items:      items,
		Subfolders: subfolders,
	}, nil
}

// DeleteFolder удаляет папку вместе с её прямыми элементами и возвращает
// освобождённые байты в квоту одной суммой. Подпапки не трогаются:
// внешний ключ поднимает их в корень. Объекты в хранилище убираются
// по возможности.
func (s *FolderService) DeleteFolder(ctx context.Context, ownerID string, id int64) (*domain.CascadeResult, error) {
	if _, err := s.getOwned(ctx, ownerID, id); err != nil {
		return nil, err
	}

	items, err := s.items.GetByFolder(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	var freed int64
	for _, item := range items {
		freed += item.SizeBytes
		if item.BlobKey != nil {
			s.janitor.Remove(ctx, *item.BlobKey)
			s.janitor.Remove(ctx, fmt.Sprintf("previews/%s", item.UUID))
		}
	}

	deleted, err := s.items.DeleteByFolder(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if err := s.folders.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: folder does not exist", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if freed > 0 {
		s.releaseQuiet(ctx, ownerID, freed)
	}

	return &domain.CascadeResult{
		DeletedItemCount: deleted,
		FreedBytes:       freed,
	}, nil
}

// DuplicateFolder создаёт копию папки с суффиксом " (copy)" у того же
// родителя. Копируются только текстовые заметки, картинки и PDF
// пропускаются. Ошибка на середине откатывает созданное и резерв.
func (s *FolderService) DuplicateFolder(ctx context.Context, ownerID string, id int64) (*domain.FolderDuplicateResult, error) {
	orig, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	items, err := s.items.GetByFolder(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	notes := make([]domain.Item, 0, len(items))
	var required int64
	for _, item := range items {
		if item.Kind == domain.KindNote {
			notes = append(notes, item)
			required += item.SizeBytes
		}
	}

	newName := orig.Name + " (copy)"

	exists, err := s.folders.NameExists(ctx, ownerID, orig.ParentFolderID, newName, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: folder with this name already exists", ErrInvalidInput)
	}

	if required > 0 {
		q, err := s.quotas.GetQuota(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}

		ok, err := s.quotas.Reserve(ctx, ownerID, required)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
		if !ok {
			return nil, &QuotaExceededError{
				RequiredBytes:  required,
				AvailableBytes: quota.Available(q.UsedBytes, q.TotalBytesLimit),
			}
		}
	}

	newFolder := &domain.Folder{
		OwnerID:        ownerID,
		Name:           newName,
		ParentFolderID: orig.ParentFolderID,
	}

	if err := s.folders.Create(ctx, newFolder); err != nil {
		s.releaseQuiet(ctx, ownerID, required)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	for _, note := range notes {
		dup := &domain.Item{
			UUID:      uuid.New(),
			OwnerID:   ownerID,
			FolderID:  &newFolder.ID,
			Kind:      domain.KindNote,
			Title:     note.Title,
			Content:   note.Content,
			SizeBytes: note.SizeBytes,
		}

		if err := s.items.Create(ctx, dup); err != nil {
			s.rollbackDuplicate(ctx, ownerID, newFolder.ID, required)
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
	}

	return &domain.FolderDuplicateResult{
		Folder:              *newFolder,
		DuplicatedNoteCount: len(notes),
	}, nil
}

// rollbackDuplicate убирает частично созданную копию папки
func (s *FolderService) rollbackDuplicate(ctx context.Context, ownerID string, folderID int64, reserved int64) {
	if _, err := s.items.DeleteByFolder(ctx, ownerID, folderID); err != nil {
		logrus.Errorf("failed to roll back duplicated notes in folder %d: %v", folderID, err)
	}
	if err := s.folders.Delete(ctx, ownerID, folderID); err != nil {
		logrus.Errorf("failed to roll back duplicated folder %d: %v", folderID, err)
	}
	s.releaseQuiet(ctx, ownerID, reserved)
}

func (s *FolderService) releaseQuiet(ctx context.Context, ownerID string, bytes int64) {
	if bytes <= 0 {
		return
	}
	if err := s.quotas.Release(ctx, ownerID, bytes); err != nil {
		logrus.Errorf("failed to release %d reserved bytes for %s: %v", bytes, ownerID, err)
	}
}

func (s *FolderService) getOwned(ctx context.Context, ownerID string, id int64) (*domain.Folder, error) {
	folder, err := s.folders.GetByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: folder does not exist", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return folder, nil
}
