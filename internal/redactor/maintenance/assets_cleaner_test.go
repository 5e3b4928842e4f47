package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/aisa-it/redactor/internal/redactor/dao"
	filestorage "github.com/aisa-it/redactor/internal/redactor/file-storage"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestCleanAssets(t *testing.T) {
	ctx := context.Background()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(dao.Models...))

	storage, err := filestorage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	used, orphan := dao.GenUUID(), dao.GenUUID()
	require.NoError(t, storage.Save(ctx, []byte("a"), used, "image/png"))
	require.NoError(t, storage.Save(ctx, []byte("b"), orphan, "image/png"))

	doc := dao.NewDocument("with image")
	doc.Content = `<p><img src="/api/assets/` + used.String() + `/"></p>`
	require.NoError(t, db.Create(&doc).Error)

	cleaner := NewAssetCleaner(db, storage, time.Hour)

	// свежие файлы не трогаем
	assert.Equal(t, 0, cleaner.CleanAssets(ctx))

	cleaner.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, 1, cleaner.CleanAssets(ctx))

	ok, _ := storage.Exist(ctx, used)
	assert.True(t, ok)
	ok, _ = storage.Exist(ctx, orphan)
	assert.False(t, ok)
}
