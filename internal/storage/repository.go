// Package storage is the self-hosted backend: accounts, sessions and the
// tracker tables in a local SQLite file.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tracker/internal/auth"
	"tracker/internal/core"

	_ "modernc.org/sqlite"
)

// tableColumns whitelists the columns reachable through Insert and Select.
// Identifiers never come from callers unchecked.
var tableColumns = map[string][]string{
	core.TableTransactions: {"id", "user_id", "amount", "description", "type", "category", "created_at"},
	core.TableStudyTasks:   {"id", "title", "description", "deadline", "created_at"},
}

// numericColumns are stored as TEXT and handed back as json.Number.
var numericColumns = map[string]bool{"amount": true}

type SQLiteRepository struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewSQLiteRepository(ctx context.Context, dbPath string, sessionTTL time.Duration) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", withPragmas(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:  db,
		ttl: sessionTTL,
		now: time.Now,
	}, nil
}

func withPragmas(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SignUp creates an account and returns a confirmed session for it.
func (r *SQLiteRepository) SignUp(ctx context.Context, email, password string) (*core.AuthResult, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		var ae *core.AuthError
		if errors.As(err, &ae) {
			return nil, err
		}
		return nil, backendError(err)
	}

	now := r.now().UTC()
	user := &core.User{
		ID:        uuid.NewString(),
		Email:     auth.NormalizeEmail(email),
		Role:      "authenticated",
		CreatedAt: now,
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Email, hash, user.Role, core.FormatTimestamp(now))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, auth.EmailTaken()
		}
		return nil, backendError(fmt.Errorf("create account: %w", err))
	}

	slog.InfoContext(ctx, "Account created", "user_id", user.ID, "component", "storage")

	return r.startSession(ctx, user, now)
}

// SignIn verifies the credentials and opens a new session. Expired
// sessions are purged on the way.
func (r *SQLiteRepository) SignIn(ctx context.Context, email, password string) (*core.AuthResult, error) {
	var (
		user      core.User
		hash      string
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, created_at FROM accounts WHERE email = ?`,
		auth.NormalizeEmail(email)).Scan(&user.ID, &user.Email, &hash, &user.Role, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.InvalidCredentials()
	}
	if err != nil {
		return nil, backendError(fmt.Errorf("get account: %w", err))
	}
	if !auth.CheckPassword(password, hash) {
		return nil, auth.InvalidCredentials()
	}
	if t, err := time.Parse(core.TimestampLayout, createdAt); err == nil {
		user.CreatedAt = t
	}

	now := r.now().UTC()
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, core.FormatTimestamp(now)); err != nil {
		slog.WarnContext(ctx, "Failed to purge expired sessions", "error", err, "component", "storage")
	}

	return r.startSession(ctx, &user, now)
}

func (r *SQLiteRepository) startSession(ctx context.Context, user *core.User, now time.Time) (*core.AuthResult, error) {
	session, err := auth.NewSession(user, r.ttl, now)
	if err != nil {
		return nil, backendError(err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		session.AccessToken, user.ID, core.FormatTimestamp(time.Unix(session.ExpiresAt, 0)), core.FormatTimestamp(now))
	if err != nil {
		return nil, backendError(fmt.Errorf("create session: %w", err))
	}
	return &core.AuthResult{User: user, Session: session}, nil
}

// Insert writes record into table, filling id and created_at when absent,
// and returns the stored row.
func (r *SQLiteRepository) Insert(ctx context.Context, table string, record core.Record) (core.Record, error) {
	columns, err := columnsOf(table)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(columns))
	for _, c := range columns {
		allowed[c] = true
	}

	row := record.Clone()
	for k := range row {
		if !allowed[k] {
			return nil, &core.BackendError{
				Status:  400,
				Code:    "PGRST204",
				Message: fmt.Sprintf("Could not find the '%s' column of '%s'", k, table),
				Err:     core.ErrUnknownColumn,
			}
		}
	}
	if !row.Has("id") {
		row["id"] = uuid.NewString()
	}
	if !row.Has("created_at") {
		row["created_at"] = core.FormatTimestamp(r.now())
	}

	names := make([]string, 0, len(row))
	args := make([]any, 0, len(row))
	for _, c := range columns {
		v, ok := row[c]
		if !ok {
			continue
		}
		names = append(names, c)
		args = append(args, sqlValue(v))
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		table, strings.Join(names, ", "), placeholders(len(names)))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, backendError(fmt.Errorf("insert into %s: %w", table, err))
	}

	stored, err := r.Select(ctx, table, core.Query{}.Eq("id", core.StringValue(row["id"])))
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, &core.BackendError{Message: fmt.Sprintf("insert into %s returned no rows", table)}
	}
	return stored[0], nil
}

// Select reads rows of table. Ties in the requested order fall back to
// insertion order.
func (r *SQLiteRepository) Select(ctx context.Context, table string, q core.Query) ([]core.Record, error) {
	all, err := columnsOf(table)
	if err != nil {
		return nil, err
	}
	columns := all
	if len(q.Columns) > 0 {
		columns = q.Columns
	}
	if err := checkColumns(table, all, columns); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	for _, f := range q.Filters {
		if err := checkColumns(table, all, []string{f.Column}); err != nil {
			return nil, err
		}
		where = append(where, f.Column+" = ?")
		args = append(args, f.Value)
	}

	var order []string
	for _, o := range q.Order {
		if err := checkColumns(table, all, []string{o.Column}); err != nil {
			return nil, err
		}
		dir := "DESC"
		if o.Ascending {
			dir = "ASC"
		}
		order = append(order, o.Column+" "+dir)
	}
	order = append(order, "rowid ASC")

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(columns, ", "), table)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY " + strings.Join(order, ", "))

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, backendError(fmt.Errorf("select from %s: %w", table, err))
	}
	defer rows.Close()

	out := []core.Record{}
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, backendError(fmt.Errorf("scan %s row: %w", table, err))
		}
		rec := make(core.Record, len(columns))
		for i, c := range columns {
			rec[c] = recordValue(c, values[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, backendError(fmt.Errorf("iterate %s rows: %w", table, err))
	}
	return out, nil
}

func columnsOf(table string) ([]string, error) {
	columns, ok := tableColumns[table]
	if !ok {
		return nil, &core.BackendError{
			Status:  404,
			Code:    "42P01",
			Message: fmt.Sprintf("relation %q does not exist", table),
			Err:     core.ErrUnknownTable,
		}
	}
	return columns, nil
}

func checkColumns(table string, allowed, requested []string) error {
	for _, c := range requested {
		found := false
		for _, a := range allowed {
			if a == c {
				found = true
				break
			}
		}
		if !found {
			return &core.BackendError{
				Status:  400,
				Code:    "42703",
				Message: fmt.Sprintf("column %s.%s does not exist", table, c),
				Err:     core.ErrUnknownColumn,
			}
		}
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func sqlValue(v any) any {
	if v == nil {
		return nil
	}
	return core.StringValue(v)
}

func recordValue(column string, v sql.NullString) any {
	if !v.Valid {
		return nil
	}
	if numericColumns[column] {
		if _, err := decimal.NewFromString(v.String); err == nil {
			return json.Number(v.String)
		}
	}
	return v.String
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func backendError(err error) error {
	return &core.BackendError{Message: err.Error(), Err: err}
}
