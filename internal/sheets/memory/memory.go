// Package memory records appended rows in process. The mirror worker uses
// it as a dry run when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"
)

type Store struct {
	mu   sync.Mutex
	rows map[string][][]any
}

func New() *Store {
	return &Store{rows: make(map[string][][]any)}
}

// AppendRow stores a copy of values and returns a synthetic A1 reference.
func (s *Store) AppendRow(_ context.Context, sheetName string, values []any) (string, error) {
	if sheetName == "" {
		return "", fmt.Errorf("sheet name is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[sheetName] = append(s.rows[sheetName], append([]any(nil), values...))
	n := len(s.rows[sheetName])
	return fmt.Sprintf("mem:%s!A%d", sheetName, n), nil
}

// Rows returns a copy of the rows appended to sheetName.
func (s *Store) Rows(sheetName string) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows[sheetName]))
	for i, r := range s.rows[sheetName] {
		out[i] = append([]any(nil), r...)
	}
	return out
}
