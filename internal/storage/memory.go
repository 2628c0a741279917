package storage

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/exp/slices"

	"htmsim/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	recordings  map[string]model.Recording
	runs        map[string]model.RunRecord
	ticks       map[string][]model.TickStats
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.recordings = make(map[string]model.Recording)
	s.runs = make(map[string]model.RunRecord)
	s.ticks = make(map[string][]model.TickStats)
	return nil
}

func (s *MemoryStore) SaveRecording(_ context.Context, recording model.Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	recording.Patterns = append([]string(nil), recording.Patterns...)
	s.recordings[recording.Name] = recording
	return nil
}

func (s *MemoryStore) GetRecording(_ context.Context, name string) (model.Recording, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recording, ok := s.recordings[name]
	if !ok {
		return model.Recording{}, false, nil
	}
	recording.Patterns = append([]string(nil), recording.Patterns...)
	return recording, true, nil
}

func (s *MemoryStore) ListRecordings(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.recordings))
	for name := range s.recordings {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sortRuns(runs)
	return runs, nil
}

func (s *MemoryStore) SaveTickHistory(_ context.Context, runID string, history []model.TickStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	copied := append([]model.TickStats(nil), history...)
	s.ticks[runID] = copied
	return nil
}

func (s *MemoryStore) GetTickHistory(_ context.Context, runID string) ([]model.TickStats, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.ticks[runID]
	if !ok {
		return nil, false, nil
	}
	copied := append([]model.TickStats(nil), history...)
	return copied, true, nil
}

// sortRuns orders runs oldest first, breaking ties by id.
func sortRuns(runs []model.RunRecord) {
	slices.SortFunc(runs, func(a, b model.RunRecord) int {
		if c := strings.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
