// Package memory is an in-process backend used for local development and
// tests. Nothing survives a restart.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tracker/internal/auth"
	"tracker/internal/core"
)

type account struct {
	user *core.User
	hash string
}

type Store struct {
	mu       sync.RWMutex
	ttl      time.Duration
	accounts map[string]account
	tables   map[string][]core.Record
	now      func() time.Time
}

// NewStore returns an empty store with the transactions and study_tasks
// tables. Sessions it issues expire after ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:      ttl,
		accounts: make(map[string]account),
		tables: map[string][]core.Record{
			core.TableTransactions: nil,
			core.TableStudyTasks:   nil,
		},
		now: time.Now,
	}
}

// SignUp registers email and returns an already confirmed session.
func (s *Store) SignUp(_ context.Context, email, password string) (*core.AuthResult, error) {
	key := auth.NormalizeEmail(email)
	hash, err := auth.HashPassword(password)
	if err != nil {
		var ae *core.AuthError
		if errors.As(err, &ae) {
			return nil, err
		}
		return nil, &core.BackendError{Message: err.Error(), Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[key]; ok {
		return nil, auth.EmailTaken()
	}
	now := s.now()
	user := &core.User{ID: uuid.NewString(), Email: key, Role: "authenticated", CreatedAt: now.UTC()}
	s.accounts[key] = account{user: user, hash: hash}
	return s.issue(user, now)
}

// SignIn checks email and password against registered accounts.
func (s *Store) SignIn(_ context.Context, email, password string) (*core.AuthResult, error) {
	s.mu.RLock()
	acct, ok := s.accounts[auth.NormalizeEmail(email)]
	s.mu.RUnlock()
	if !ok || !auth.CheckPassword(password, acct.hash) {
		return nil, auth.InvalidCredentials()
	}
	return s.issue(acct.user, s.now())
}

func (s *Store) issue(user *core.User, now time.Time) (*core.AuthResult, error) {
	session, err := auth.NewSession(user, s.ttl, now)
	if err != nil {
		return nil, &core.BackendError{Message: err.Error(), Err: err}
	}
	return &core.AuthResult{User: user, Session: session}, nil
}

// Insert stores a copy of record, filling id and created_at when absent.
func (s *Store) Insert(_ context.Context, table string, record core.Record) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tables[table]
	if !ok {
		return nil, unknownTable(table)
	}
	row := record.Clone()
	if !row.Has("id") {
		row["id"] = uuid.NewString()
	}
	if !row.Has("created_at") {
		row["created_at"] = core.FormatTimestamp(s.now())
	}
	s.tables[table] = append(rows, row)
	return row.Clone(), nil
}

// Select filters, sorts and projects rows of table. Rows keep insertion
// order when no sort key is given or keys compare equal.
func (s *Store) Select(_ context.Context, table string, q core.Query) ([]core.Record, error) {
	s.mu.RLock()
	rows, ok := s.tables[table]
	if !ok {
		s.mu.RUnlock()
		return nil, unknownTable(table)
	}
	matched := make([]core.Record, 0, len(rows))
	for _, row := range rows {
		if matches(row, q.Filters) {
			matched = append(matched, row)
		}
	}
	s.mu.RUnlock()

	if len(q.Order) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			return less(matched[i], matched[j], q.Order)
		})
	}

	out := make([]core.Record, len(matched))
	for i, row := range matched {
		out[i] = project(row, q.Columns)
	}
	return out, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

func unknownTable(table string) error {
	return &core.BackendError{
		Status:  404,
		Message: fmt.Sprintf("relation %q does not exist", table),
		Err:     core.ErrUnknownTable,
	}
}

func matches(row core.Record, filters []core.Filter) bool {
	for _, f := range filters {
		v, ok := row[f.Column]
		if !ok || core.StringValue(v) != f.Value {
			return false
		}
	}
	return true
}

func less(a, b core.Record, order []core.Order) bool {
	for _, o := range order {
		av, bv := core.StringValue(a[o.Column]), core.StringValue(b[o.Column])
		if av == bv {
			continue
		}
		if o.Ascending {
			return av < bv
		}
		return av > bv
	}
	return false
}

func project(row core.Record, columns []string) core.Record {
	if len(columns) == 0 {
		return row.Clone()
	}
	out := make(core.Record, len(columns))
	for _, c := range columns {
		if v, ok := row[c]; ok {
			out[c] = v
		}
	}
	return out
}
