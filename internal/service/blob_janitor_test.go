package service

import (
	"context"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJanitorCopyGeneratesFreshKey(t *testing.T) {
	blobs := newMemStorage()
	blobs.objects["user_files/u/abc.png"] = []byte("data")

	janitor := NewBlobJanitor(blobs)

	newKey, err := janitor.Copy(context.Background(), "user_files/u/abc.png")
	require.NoError(t, err)

	assert.NotEqual(t, "user_files/u/abc.png", newKey)
	assert.Equal(t, ".png", path.Ext(newKey), "extension is preserved")
	assert.True(t, strings.HasPrefix(newKey, "user_files/u/abc-"), "copy stays in the same prefix")
	assert.Equal(t, []byte("data"), blobs.objects[newKey])
}

func TestJanitorCopyFailure(t *testing.T) {
	blobs := newMemStorage()
	blobs.objects["k.pdf"] = []byte("data")
	blobs.failCopy = true

	janitor := NewBlobJanitor(blobs)

	_, err := janitor.Copy(context.Background(), "k.pdf")
	assert.Error(t, err)
	assert.Len(t, blobs.objects, 1)
}

func TestJanitorRemoveMissingObjectIsQuiet(t *testing.T) {
	blobs := newMemStorage()
	janitor := NewBlobJanitor(blobs)

	// Отсутствующий объект не считается ошибкой
	janitor.Remove(context.Background(), "nope")

	blobs.objects["k"] = []byte("data")
	janitor.Remove(context.Background(), "k")
	assert.Empty(t, blobs.objects)
}
