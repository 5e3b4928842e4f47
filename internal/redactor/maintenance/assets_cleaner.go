// Пакет для очистки картинок, на которые не ссылается ни один документ. Файлы с именами не UUID
// и файлы без ссылок старше grace удаляются из хранилища.
//
// Основные возможности:
//   - Обход корня хранилища картинок.
//   - Поиск ссылок на картинку в содержимом документов.
//   - Удаление неиспользуемых файлов.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/aisa-it/redactor/internal/redactor/dao"
	filestorage "github.com/aisa-it/redactor/internal/redactor/file-storage"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// DefaultGrace время, в течение которого загруженная картинка не удаляется, даже если документ еще не сохранен.
const DefaultGrace = 24 * time.Hour

type AssetsCleaner struct {
	db    *gorm.DB
	si    filestorage.FileStorage
	grace time.Duration
	now   func() time.Time
}

func NewAssetCleaner(db *gorm.DB, si filestorage.FileStorage, grace time.Duration) *AssetsCleaner {
	return &AssetsCleaner{db: db, si: si, grace: grace, now: time.Now}
}

// CleanAssets удаляет неиспользуемые картинки и возвращает число удаленных.
func (ac *AssetsCleaner) CleanAssets(ctx context.Context) int {
	slog.Info("Start assets cleaning")
	var removed int
	var orphans []uuid.UUID
	if err := ac.si.ListRoot(ctx, func(fi filestorage.FileInfo) error {
		id, err := uuid.FromString(fi.Name)
		if err != nil {
			slog.Warn("Unexpected file in assets storage", "name", fi.Name)
			return nil
		}
		if ac.now().Sub(fi.CreatedAt) < ac.grace {
			return nil
		}

		var exist bool
		if err := ac.db.WithContext(ctx).
			Model(&dao.Document{}).
			Select("count(*) > 0").
			Where("content LIKE ?", "%"+id.String()+"%").
			Find(&exist).Error; err != nil {
			return err
		}
		if !exist {
			orphans = append(orphans, id)
		}
		return nil
	}); err != nil {
		slog.Error("Clean assets fail", "err", err)
		return 0
	}

	for _, id := range orphans {
		if err := ac.si.Delete(ctx, id); err != nil {
			slog.Error("Delete orphan asset", "id", id, "err", err)
			continue
		}
		removed++
	}
	slog.Info("Finish assets cleaning", "removed", removed)
	return removed
}
