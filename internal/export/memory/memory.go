// Package memory is an in-memory export adapter for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"dmo/internal/core"
	"dmo/internal/export"
)

type Store struct {
	mu      sync.Mutex
	rows    []export.Row
	digests []core.DailyReport
}

var (
	_ export.CompletionWriter = (*Store)(nil)
	_ export.DigestWriter     = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// Append stores the row and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, r export.Row) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) AppendDigest(_ context.Context, report core.DailyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.digests = append(s.digests, report)
	return nil
}

// Rows returns a copy of the appended rows.
func (s *Store) Rows() []export.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]export.Row(nil), s.rows...)
}

// Digests returns a copy of the appended digests.
func (s *Store) Digests() []core.DailyReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.DailyReport(nil), s.digests...)
}
