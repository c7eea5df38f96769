package flash

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// recordingSink keeps every call in order.
type recordingSink struct {
	mu       sync.Mutex
	events   []string
	progress []float64
	messages []string
	answers  map[string]string
}

func (s *recordingSink) ProgressTitle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "title")
}

func (s *recordingSink) Progress(percent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "progress")
	s.progress = append(s.progress, percent)
}

func (s *recordingSink) Question(name, format string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "question:"+name)
	return s.answers[name]
}

func (s *recordingSink) Message(row int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, fmt.Sprintf("message:%d", row))
	s.messages = append(s.messages, text)
}

// MockHistoryRepository is a mock implementation of HistoryRepository
type MockHistoryRepository struct {
	mock.Mock
	mu    sync.Mutex
	saved []WriteRecord
}

func (m *MockHistoryRepository) Save(ctx context.Context, record *WriteRecord) error {
	m.mu.Lock()
	m.saved = append(m.saved, *record)
	m.mu.Unlock()
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockHistoryRepository) Get(ctx context.Context, id string) (*WriteRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*WriteRecord), args.Error(1)
}

func (m *MockHistoryRepository) GetAll(ctx context.Context) ([]*WriteRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*WriteRecord), args.Error(1)
}

func (m *MockHistoryRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockHistoryRepository) DeleteAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type fakePartitions []string

func (p fakePartitions) Partitions(device string) ([]string, error) {
	return p, nil
}

type countingRefresher struct {
	mu    sync.Mutex
	calls []string
}

func (r *countingRefresher) Refresh(device string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, device)
	return nil
}

// writeScript writes a shell script into dir and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

// shell returns a stage command running script through /bin/sh.
func shell(script string) []string {
	return []string{"/bin/sh", script}
}
