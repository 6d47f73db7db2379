package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Dan9191/fee-registry/internal/models"
)

// Compile-time contract assertions.
var (
	_ Collection = (*Memory)(nil)
	_ Feed       = (*Memory)(nil)
)

// ErrNotFound is returned by Memory.Remove for an unknown document id.
var ErrNotFound = errors.New("student not found")

// Memory is an in-process collection and change feed for tests and ephemeral runs.
type Memory struct {
	mu       sync.RWMutex
	records  map[string]models.StudentRecord
	watchers map[chan struct{}]struct{}
}

// NewMemory constructs an empty in-memory collection.
func NewMemory() *Memory {
	return &Memory{
		records:  make(map[string]models.StudentRecord),
		watchers: make(map[chan struct{}]struct{}),
	}
}

// Add stores rec under its document id and notifies watchers. Student ids are
// unique ignoring case, like the Postgres index on LOWER(student_id).
func (m *Memory) Add(ctx context.Context, rec models.StudentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	for _, existing := range m.records {
		if strings.EqualFold(existing.StudentID, rec.StudentID) {
			m.mu.Unlock()
			return fmt.Errorf("failed to create student: %w", models.ErrDuplicateID)
		}
	}
	m.records[rec.ID] = rec
	m.mu.Unlock()
	m.notify()
	return nil
}

// Remove deletes a record the way an operator would outside the application.
func (m *Memory) Remove(id string) error {
	m.mu.Lock()
	if _, ok := m.records[id]; !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.records, id)
	m.mu.Unlock()
	m.notify()
	return nil
}

// List returns all records ordered by date, then creation time, newest first.
func (m *Memory) List(ctx context.Context) ([]models.StudentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]models.StudentRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	m.mu.RUnlock()
	SortNewestFirst(out)
	return out, nil
}

// Watch registers a watcher until ctx is done. The memory feed never fails, so
// errs only closes.
func (m *Memory) Watch(ctx context.Context) (<-chan struct{}, <-chan error) {
	ch := make(chan struct{}, 1)
	errs := make(chan error)
	m.mu.Lock()
	m.watchers[ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.watchers, ch)
		close(ch)
		m.mu.Unlock()
		close(errs)
	}()
	return ch, errs
}

func (m *Memory) notify() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for ch := range m.watchers {
		// a pending signal already asks for a full re-read
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// SortNewestFirst orders records by Date descending, breaking ties by CreatedAt.
func SortNewestFirst(records []models.StudentRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date > records[j].Date
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
