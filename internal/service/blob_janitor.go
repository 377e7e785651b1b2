package service

import (
	"context"
	"fmt"
	"math/rand"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"notevault/internal/service/s3"
)

// BlobJanitor отвечает за жизненный цикл объектов в хранилище:
// копирование при дублировании и уборку при удалении.
type BlobJanitor struct {
	storage s3.Storage
}

func NewBlobJanitor(storage s3.Storage) *BlobJanitor {
	return &BlobJanitor{storage: storage}
}

// Copy дублирует объект под новым ключом в том же префиксе.
// Ошибка копирования фатальна для вызывающей операции.
func (j *BlobJanitor) Copy(ctx context.Context, key string) (string, error) {
	newKey := duplicateKey(key)

	if err := j.storage.CopyObject(ctx, key, newKey); err != nil {
		return "", fmt.Errorf("failed to copy blob %s: %w", key, err)
	}

	return newKey, nil
}

// Remove удаляет объект, если он существует. Логическое удаление не должно
// блокироваться невозможностью освободить место, поэтому ошибки
// логируются и проглатываются.
func (j *BlobJanitor) Remove(ctx context.Context, key string) {
	exists, err := j.storage.Exists(ctx, key)
	if err != nil {
		logrus.Warnf("blob janitor: failed to check %s: %v", key, err)
		return
	}
	if !exists {
		return
	}

	if err := j.storage.DeleteObject(ctx, key); err != nil {
		logrus.Warnf("blob janitor: failed to delete %s: %v", key, err)
	}
}

// duplicateKey строит ключ копии: <каталог>/<имя>-<unix-ms>-<random><ext>
func duplicateKey(key string) string {
	ext := path.Ext(key)
	stem := strings.TrimSuffix(key, ext)
	return fmt.Sprintf("%s-%d-%d%s", stem, time.Now().UnixMilli(), rand.Intn(1e9), ext)
}
