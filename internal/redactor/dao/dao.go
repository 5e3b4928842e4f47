// Пакет dao хранит документы редактора и теги в локальной базе и синхронизирует документы с удаленным
// хранилищем.
//
// Локальная база всегда главная: сохранение сначала пишет локально, затем пытается отправить документ
// в удаленное хранилище. Ошибка удаленного хранилища не теряет данные, а переводит статус синхронизации
// в offline.
//
// Основные возможности:
//   - Загрузка списка документов с приоритетом удаленного хранилища и откатом на локальную базу.
//   - Сохранение и удаление документов локально и удаленно.
//   - Синхронизация по правилу "побеждает последняя запись" по времени изменения.
//   - Теги с нормализацией имен и счетчиками документов, которые не уходят ниже нуля.
package dao

import (
	"sort"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/lib/pq"
)

// DefaultTagColor цвет тега, если он не задан.
const DefaultTagColor = "#6b7280"

type Document struct {
	ID uuid.UUID `gorm:"column:id;primaryKey;type:uuid" json:"id"`

	Title   string         `json:"title" validate:"max=150"`
	Content string         `json:"content"`
	Tags    pq.StringArray `json:"tags" gorm:"type:text[]"`

	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at" gorm:"index"`
}

type Tag struct {
	Name      string    `gorm:"primaryKey" json:"name"`
	Color     string    `json:"color"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"created_at"`
}

// Models модели для миграции.
var Models = []any{&Document{}, &Tag{}}

// GenUUID генерирует идентификатор нового документа.
func GenUUID() uuid.UUID {
	u2, _ := uuid.NewV4()
	return u2
}

// NewDocument пустой документ с текущим временем создания и изменения.
func NewDocument(title string) Document {
	now := time.Now().UTC()
	return Document{
		ID:         GenUUID(),
		Title:      title,
		Tags:       pq.StringArray{},
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// Touch отмечает документ измененным.
func (d *Document) Touch() {
	d.ModifiedAt = time.Now().UTC()
}

// NormalizeTag приводит имя тега к виду, в котором он хранится.
func NormalizeTag(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeTags нормализует имена, убирает пустые и повторы. Порядок первого вхождения сохраняется.
func NormalizeTags(tags []string) []string {
	res := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = NormalizeTag(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		res = append(res, tag)
	}
	return res
}

// sortDocuments сначала недавно измененные.
func sortDocuments(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].ModifiedAt.Equal(docs[j].ModifiedAt) {
			return docs[i].ModifiedAt.After(docs[j].ModifiedAt)
		}
		return docs[i].ID.String() < docs[j].ID.String()
	})
}

// upsertInto заменяет документ с тем же ID или добавляет его в конец.
func upsertInto(all []Document, doc Document) []Document {
	res := make([]Document, 0, len(all)+1)
	found := false
	for _, d := range all {
		if d.ID == doc.ID {
			res = append(res, doc)
			found = true
			continue
		}
		res = append(res, d)
	}
	if !found {
		res = append(res, doc)
	}
	return res
}
