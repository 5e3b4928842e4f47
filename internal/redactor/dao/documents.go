package dao

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aisa-it/redactor/internal/redactor/apierrors"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Remote удаленное хранилище документов.
type Remote interface {
	List(ctx context.Context) ([]Document, error)
	Put(ctx context.Context, doc Document) error
	PutAll(ctx context.Context, docs []Document) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type DocumentStore struct {
	db     *gorm.DB
	remote Remote
	state  *SyncState
}

// NewDocumentStore хранилище документов. remote может быть nil, тогда документы живут только
// в локальной базе, а статус синхронизации всегда offline.
func NewDocumentStore(db *gorm.DB, remote Remote) *DocumentStore {
	initial := StatusSynced
	if remote == nil {
		initial = StatusOffline
	}
	return &DocumentStore{db: db, remote: remote, state: NewSyncState(initial)}
}

func (s *DocumentStore) State() *SyncState {
	return s.state
}

// List документы локальной базы, сначала недавно измененные.
func (s *DocumentStore) List(ctx context.Context) ([]Document, error) {
	var docs []Document
	if err := s.db.WithContext(ctx).
		Order("modified_at desc").
		Order("id").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *DocumentStore) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	var doc Document
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// Load загружает документы. Приоритет у удаленного хранилища: его документы записываются в локальную
// базу и возвращаются. Если удаленных документов нет, возвращаются локальные и отправляются наверх.
// Ошибка удаленного хранилища откатывает загрузку на локальную базу.
func (s *DocumentStore) Load(ctx context.Context) ([]Document, error) {
	if s.remote == nil {
		return s.List(ctx)
	}

	s.state.Set(StatusSyncing)
	remoteDocs, err := s.remote.List(ctx)
	if err != nil {
		slog.Warn("Load documents from remote, fallback to local", "err", err)
		s.state.Set(StatusOffline)
		return s.List(ctx)
	}

	if len(remoteDocs) > 0 {
		if err := s.saveLocal(ctx, remoteDocs); err != nil {
			s.state.Set(StatusOffline)
			return nil, fmt.Errorf("store remote documents: %w", err)
		}
		s.state.Set(StatusSynced)
		sortDocuments(remoteDocs)
		return remoteDocs, nil
	}

	local, err := s.List(ctx)
	if err != nil {
		s.state.Set(StatusOffline)
		return nil, err
	}
	s.push(ctx, local)
	return local, nil
}

// Save пишет документ в локальную базу вместе с остальными документами списка all, затем отправляет
// документ в удаленное хранилище. Ошибка отправки не возвращается, а переводит статус в offline.
func (s *DocumentStore) Save(ctx context.Context, doc Document, all []Document) error {
	docs := upsertInto(all, doc)
	if err := s.saveLocal(ctx, docs); err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}

	if s.remote == nil {
		return nil
	}
	s.state.Set(StatusSyncing)
	if err := s.remote.Put(ctx, doc); err != nil {
		slog.Warn("Save document to remote", "id", doc.ID, "err", err)
		s.state.Set(StatusOffline)
		return nil
	}
	s.state.Set(StatusSynced)
	return nil
}

// Delete удаляет документ локально и удаленно и возвращает список all без него.
func (s *DocumentStore) Delete(ctx context.Context, id uuid.UUID, all []Document) ([]Document, error) {
	res := make([]Document, 0, len(all))
	for _, d := range all {
		if d.ID != id {
			res = append(res, d)
		}
	}

	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Document{}).Error; err != nil {
		return nil, fmt.Errorf("delete document %s: %w", id, err)
	}

	if s.remote != nil {
		s.state.Set(StatusSyncing)
		if err := s.remote.Delete(ctx, id); err != nil {
			slog.Warn("Delete document from remote", "id", id, "err", err)
			s.state.Set(StatusOffline)
			return res, nil
		}
		s.state.Set(StatusSynced)
	}
	return res, nil
}

// SyncRemote сливает локальные документы с удаленными: удаленная версия остается, если локальная
// не изменена строго позже. Результат пишется в обе стороны. Если удаленное хранилище недоступно,
// возвращаются локальные документы без изменений.
func (s *DocumentStore) SyncRemote(ctx context.Context, local []Document) ([]Document, error) {
	if s.remote == nil {
		return local, nil
	}

	s.state.Set(StatusSyncing)
	remoteDocs, err := s.remote.List(ctx)
	if err != nil {
		slog.Warn("Sync with remote", "err", err)
		s.state.Set(StatusOffline)
		return local, nil
	}

	merged := MergeLastWriteWins(remoteDocs, local)
	if err := s.saveLocal(ctx, merged); err != nil {
		s.state.Set(StatusOffline)
		return nil, fmt.Errorf("store merged documents: %w", err)
	}
	s.push(ctx, merged)
	return merged, nil
}

// MergeLastWriteWins объединяет списки по ID. Локальный документ заменяет удаленный, только если
// изменен строго позже, или если удаленного нет.
func MergeLastWriteWins(remote, local []Document) []Document {
	merged := make(map[uuid.UUID]Document, len(remote)+len(local))
	for _, d := range remote {
		merged[d.ID] = d
	}
	for _, d := range local {
		r, ok := merged[d.ID]
		if !ok || d.ModifiedAt.After(r.ModifiedAt) {
			merged[d.ID] = d
		}
	}

	res := make([]Document, 0, len(merged))
	for _, d := range merged {
		res = append(res, d)
	}
	sortDocuments(res)
	return res
}

func (s *DocumentStore) push(ctx context.Context, docs []Document) {
	if len(docs) == 0 {
		s.state.Set(StatusSynced)
		return
	}
	if err := s.remote.PutAll(ctx, docs); err != nil {
		slog.Warn("Push documents to remote", "count", len(docs), "err", err)
		s.state.Set(StatusOffline)
		return
	}
	s.state.Set(StatusSynced)
}

func (s *DocumentStore) saveLocal(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&docs).Error
	})
}
