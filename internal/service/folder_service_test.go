package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notevault/internal/domain"
)

type folderFixture struct {
	items   *memItems
	folders *memFolders
	quotas  *memQuotas
	blobs   *memStorage
	svc     *FolderService
	storage *StorageService
}

func newFolderFixture(used, limit int64) *folderFixture {
	items := newMemItems()
	folders := newMemFolders()
	quotas := &memQuotas{used: used, limit: limit}
	blobs := newMemStorage()
	janitor := NewBlobJanitor(blobs)

	return &folderFixture{
		items:   items,
		folders: folders,
		quotas:  quotas,
		blobs:   blobs,
		svc:     NewFolderService(folders, items, quotas, janitor),
		storage: NewStorageService(items, folders, quotas, blobs, janitor),
	}
}

func (f *folderFixture) mustCreateFolder(t *testing.T, name string, parentID *int64) *domain.Folder {
	t.Helper()
	folder, err := f.svc.CreateFolder(context.Background(), testOwner, name, parentID)
	require.NoError(t, err)
	return folder
}

func TestCreateFolderRejectsSiblingNameConflict(t *testing.T) {
	f := newFolderFixture(0, 1000)
	f.mustCreateFolder(t, "docs", nil)

	_, err := f.svc.CreateFolder(context.Background(), testOwner, "docs", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// То же имя под другим родителем допустимо
	parent := f.mustCreateFolder(t, "archive", nil)
	_, err = f.svc.CreateFolder(context.Background(), testOwner, "docs", &parent.ID)
	assert.NoError(t, err)
}

func TestCreateFolderMissingParent(t *testing.T) {
	f := newFolderFixture(0, 1000)

	missing := int64(99)
	_, err := f.svc.CreateFolder(context.Background(), testOwner, "docs", &missing)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRenameFolderSiblingConflict(t *testing.T) {
	f := newFolderFixture(0, 1000)
	f.mustCreateFolder(t, "a", nil)
	b := f.mustCreateFolder(t, "b", nil)

	_, err := f.svc.RenameFolder(context.Background(), testOwner, b.ID, "a")
	assert.ErrorIs(t, err, ErrInvalidInput)

	renamed, err := f.svc.RenameFolder(context.Background(), testOwner, b.ID, "c")
	require.NoError(t, err)
	assert.Equal(t, "c", renamed.Name)
}

func TestGetFolderContent(t *testing.T) {
	f := newFolderFixture(0, 1000)
	folder := f.mustCreateFolder(t, "docs", nil)
	f.mustCreateFolder(t, "sub", &folder.ID)

	_, err := f.storage.CreateNote(context.Background(), testOwner, &folder.ID, "note", "text")
	require.NoError(t, err)

	content, err := f.svc.GetFolderContent(context.Background(), testOwner, folder.ID)
	require.NoError(t, err)

	assert.Equal(t, folder.ID, content.Folder.ID)
	assert.Len(t, content.Items, 1)
	assert.Len(t, content.Subfolders, 1)
}

func TestDeleteFolderCascadeAccounting(t *testing.T) {
	f := newFolderFixture(0, 2000)
	folder := f.mustCreateFolder(t, "docs", nil)

	sf := &storageFixture{items: f.items, folders: f.folders, quotas: f.quotas, blobs: f.blobs, svc: f.storage}
	a := sf.seedFile(t, domain.KindImage, 300, &folder.ID)
	sf.seedFile(t, domain.KindPDF, 700, &folder.ID)
	f.quotas.used = 1000

	result, err := f.svc.DeleteFolder(context.Background(), testOwner, folder.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.DeletedItemCount)
	assert.Equal(t, int64(1000), result.FreedBytes)
	assert.Equal(t, int64(0), f.quotas.used, "freed bytes return to the ledger in one sum")
	assert.Empty(t, f.items.byID)

	exists, _ := f.blobs.Exists(context.Background(), *a.BlobKey)
	assert.False(t, exists, "blobs of deleted items are removed")
}

func TestDeleteFolderKeepsSubfolders(t *testing.T) {
	f := newFolderFixture(0, 1000)
	folder := f.mustCreateFolder(t, "docs", nil)
	sub := f.mustCreateFolder(t, "sub", &folder.ID)

	_, err := f.svc.DeleteFolder(context.Background(), testOwner, folder.ID)
	require.NoError(t, err)

	// Подпапка переживает удаление родителя (каскад на один уровень)
	_, ok := f.folders.byID[sub.ID]
	assert.True(t, ok)
	_, ok = f.folders.byID[folder.ID]
	assert.False(t, ok)
}

func TestDuplicateFolderCopiesNotesOnly(t *testing.T) {
	f := newFolderFixture(0, 10000)
	folder := f.mustCreateFolder(t, "docs", nil)

	note, err := f.storage.CreateNote(context.Background(), testOwner, &folder.ID, "note", "text")
	require.NoError(t, err)

	sf := &storageFixture{items: f.items, folders: f.folders, quotas: f.quotas, blobs: f.blobs, svc: f.storage}
	sf.seedFile(t, domain.KindImage, 500, &folder.ID)
	usedBefore := f.quotas.used

	result, err := f.svc.DuplicateFolder(context.Background(), testOwner, folder.ID)
	require.NoError(t, err)

	assert.Equal(t, "docs (copy)", result.Folder.Name)
	assert.Equal(t, 1, result.DuplicatedNoteCount)
	assert.Equal(t, usedBefore+note.SizeBytes, f.quotas.used, "only note bytes are charged")

	copies, err := f.items.GetByFolder(context.Background(), testOwner, result.Folder.ID)
	require.NoError(t, err)
	require.Len(t, copies, 1)
	assert.Equal(t, domain.KindNote, copies[0].Kind)
	assert.Equal(t, "note", copies[0].Title, "note titles are kept as is inside the copy")
	assert.Len(t, f.blobs.objects, 1, "image blob is not copied")
}

func TestDuplicateFolderQuotaExceeded(t *testing.T) {
	f := newFolderFixture(0, 1000)
	folder := f.mustCreateFolder(t, "docs", nil)

	_, err := f.storage.CreateNote(context.Background(), testOwner, &folder.ID, "note", "text")
	require.NoError(t, err)

	f.quotas.used = 995 // на копию не хватает

	_, err = f.svc.DuplicateFolder(context.Background(), testOwner, folder.ID)

	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, int64(995), f.quotas.used)
	assert.Len(t, f.folders.byID, 1, "no folder row on quota failure")
}

func TestDuplicateFolderRollsBackOnMidLoopFailure(t *testing.T) {
	f := newFolderFixture(0, 10000)
	folder := f.mustCreateFolder(t, "docs", nil)

	_, err := f.storage.CreateNote(context.Background(), testOwner, &folder.ID, "one", "text")
	require.NoError(t, err)
	_, err = f.storage.CreateNote(context.Background(), testOwner, &folder.ID, "two", "text")
	require.NoError(t, err)

	usedBefore := f.quotas.used
	foldersBefore := len(f.folders.byID)
	itemsBefore := len(f.items.byID)

	// Вторая копируемая заметка упадёт на создании
	f.items.failCreateAfter = f.items.createCalls + 2

	_, err = f.svc.DuplicateFolder(context.Background(), testOwner, folder.ID)
	require.ErrorIs(t, err, ErrInternal)

	assert.Equal(t, usedBefore, f.quotas.used, "reservation is rolled back")
	assert.Len(t, f.folders.byID, foldersBefore, "new folder is rolled back")
	assert.Len(t, f.items.byID, itemsBefore, "created note copies are rolled back")
}

func TestDuplicateFolderNameConflict(t *testing.T) {
	f := newFolderFixture(0, 1000)
	f.mustCreateFolder(t, "docs", nil)
	f.mustCreateFolder(t, "docs (copy)", nil)

	folder := f.folders.byID[1]
	_, err := f.svc.DuplicateFolder(context.Background(), testOwner, folder.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeleteFolderWrongOwner(t *testing.T) {
	f := newFolderFixture(0, 1000)
	folder := f.mustCreateFolder(t, "docs", nil)

	_, err := f.svc.DeleteFolder(context.Background(), "intruder", folder.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, f.folders.byID, 1)
}
