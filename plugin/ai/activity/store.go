package activity

import (
	"context"
	"sync"
)

// ScheduleStore persists adaptive schedules.
type ScheduleStore interface {
	// GetSchedule returns nil, nil when the user has no schedule yet.
	GetSchedule(ctx context.Context, userID string) (*AdaptiveSchedule, error)
	SaveSchedule(ctx context.Context, s *AdaptiveSchedule) error
}

// MemoryScheduleStore keeps schedules for the process lifetime.
type MemoryScheduleStore struct {
	mu        sync.RWMutex
	schedules map[string]*AdaptiveSchedule
}

// NewMemoryScheduleStore creates an empty store.
func NewMemoryScheduleStore() *MemoryScheduleStore {
	return &MemoryScheduleStore{schedules: make(map[string]*AdaptiveSchedule)}
}

func (m *MemoryScheduleStore) GetSchedule(_ context.Context, userID string) (*AdaptiveSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.schedules[userID]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

func (m *MemoryScheduleStore) SaveSchedule(_ context.Context, s *AdaptiveSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.schedules[s.UserID] = s.Clone()
	return nil
}

var _ ScheduleStore = (*MemoryScheduleStore)(nil)
