package dao

import (
	"slices"
	"sync"
)

type SyncStatus string

const (
	StatusSynced  SyncStatus = "synced"
	StatusSyncing SyncStatus = "syncing"
	StatusOffline SyncStatus = "offline"
)

// SyncState текущий статус синхронизации с подписчиками на его смену.
type SyncState struct {
	mu        sync.RWMutex
	status    SyncStatus
	listeners []func(SyncStatus)
}

func NewSyncState(initial SyncStatus) *SyncState {
	return &SyncState{status: initial}
}

func (s *SyncState) Status() SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Set меняет статус. Подписчики вызываются только при реальной смене, вне блокировки.
func (s *SyncState) Set(status SyncStatus) {
	s.mu.Lock()
	if s.status == status {
		s.mu.Unlock()
		return
	}
	s.status = status
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(status)
	}
}

func (s *SyncState) Subscribe(fn func(SyncStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
