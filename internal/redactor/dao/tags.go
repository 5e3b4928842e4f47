package dao

import (
	"context"
	"slices"

	"github.com/aisa-it/redactor/internal/redactor/apierrors"
	"github.com/gofrs/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TagStore struct {
	db *gorm.DB
}

func NewTagStore(db *gorm.DB) *TagStore {
	return &TagStore{db: db}
}

// ListTags все теги по имени.
func (ts *TagStore) ListTags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	if err := ts.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, err
	}
	for i := range tags {
		if tags[i].Color == "" {
			tags[i].Color = DefaultTagColor
		}
	}
	return tags, nil
}

// CreateTag создает тег или возвращает существующий с тем же нормализованным именем.
func (ts *TagStore) CreateTag(ctx context.Context, name, color string) (*Tag, error) {
	name = NormalizeTag(name)
	if name == "" {
		return nil, apierrors.ErrTagNameRequired
	}
	if color == "" {
		color = DefaultTagColor
	}

	tag := Tag{Name: name, Color: color}
	if err := ts.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&tag).Error; err != nil {
		return nil, err
	}
	if err := ts.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (ts *TagStore) DeleteTag(ctx context.Context, name string) error {
	return ts.db.WithContext(ctx).Where("name = ?", NormalizeTag(name)).Delete(&Tag{}).Error
}

// UpdateDocumentTags заменяет теги документа. Добавленные теги создаются при необходимости,
// их счетчики растут, у удаленных уменьшаются, но не ниже нуля.
func (ts *TagStore) UpdateDocumentTags(ctx context.Context, docID uuid.UUID, oldTags, newTags []string) error {
	oldNorm := NormalizeTags(oldTags)
	newNorm := NormalizeTags(newTags)

	var added, removed []string
	for _, tag := range newNorm {
		if !slices.Contains(oldNorm, tag) {
			added = append(added, tag)
		}
	}
	for _, tag := range oldNorm {
		if !slices.Contains(newNorm, tag) {
			removed = append(removed, tag)
		}
	}

	return ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Document{}).
			Where("id = ?", docID).
			UpdateColumn("tags", pq.StringArray(newNorm))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apierrors.ErrDocumentNotFound
		}

		if len(added) > 0 {
			created := make([]Tag, 0, len(added))
			for _, name := range added {
				created = append(created, Tag{Name: name, Color: DefaultTagColor})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&created).Error; err != nil {
				return err
			}
			if err := tx.Model(&Tag{}).
				Where("name IN ?", added).
				UpdateColumn("count", gorm.Expr("count + 1")).Error; err != nil {
				return err
			}
		}

		if len(removed) > 0 {
			if err := tx.Model(&Tag{}).
				Where("name IN ?", removed).
				UpdateColumn("count", gorm.Expr("CASE WHEN count > 0 THEN count - 1 ELSE 0 END")).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
