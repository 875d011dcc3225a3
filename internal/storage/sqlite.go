// Package storage provides the durable SQLite storage variant backed by
// modernc.org/sqlite, with schema managed by embedded golang-migrate
// migrations.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dmo/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteBackend implements backend.Backend on a single *sql.DB.
type SQLiteBackend struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteBackend opens (creating if necessary) the database at dbPath.
// Call Init before use.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteBackend{db: db, dbPath: dbPath}, nil
}

// Init applies schema migrations. Safe to call repeatedly.
func (b *SQLiteBackend) Init(_ context.Context) error {
	if b.db == nil {
		return &core.StorageError{Op: "init", Err: errors.New("database not open")}
	}
	if err := RunMigrations(b.dbPath); err != nil {
		return &core.StorageError{Op: "init", Err: err}
	}
	return nil
}

// Close releases the underlying connection pool.
func (b *SQLiteBackend) Close() error {
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		return err
	}
	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+constraint)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

type dmoRow struct {
	id          int64
	name        string
	description sql.NullString
	active      int64
	timezone    sql.NullString
	createdAt   string
	updatedAt   string
}

func (r dmoRow) toDmo() core.Dmo {
	dmo := core.Dmo{
		ID:        r.id,
		Name:      r.name,
		Active:    r.active != 0,
		CreatedAt: parseTime(r.createdAt),
		UpdatedAt: parseTime(r.updatedAt),
	}
	if r.description.Valid {
		v := r.description.String
		dmo.Description = &v
	}
	if r.timezone.Valid {
		v := r.timezone.String
		dmo.Timezone = &v
	}
	return dmo
}

func (b *SQLiteBackend) scanDmo(row *sql.Row) (core.Dmo, error) {
	var r dmoRow
	err := row.Scan(&r.id, &r.name, &r.description, &r.active, &r.timezone, &r.createdAt, &r.updatedAt)
	if err != nil {
		return core.Dmo{}, err
	}
	return r.toDmo(), nil
}

func (b *SQLiteBackend) dmoExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := b.db.QueryRowContext(ctx, "SELECT 1 FROM dmos WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *SQLiteBackend) ensureDmoExists(ctx context.Context, op string, id int64) error {
	exists, err := b.dmoExists(ctx, id)
	if err != nil {
		return &core.StorageError{Op: op, Err: err}
	}
	if !exists {
		return &core.DmoNotFoundError{ID: id}
	}
	return nil
}

const dmoColumns = "id, name, description, active, timezone, created_at, updated_at"

func (b *SQLiteBackend) CreateDmo(ctx context.Context, data core.DmoCreate) (core.Dmo, error) {
	if err := data.Validate(); err != nil {
		return core.Dmo{}, err
	}

	now := formatTime(core.UtcNow())
	res, err := b.db.ExecContext(ctx,
		"INSERT INTO dmos (name, description, active, timezone, created_at, updated_at) VALUES (?, ?, 1, ?, ?, ?)",
		data.Name, data.Description, data.Timezone, now, now)
	if err != nil {
		if isUniqueViolation(err, "dmos.name") {
			return core.Dmo{}, &core.DuplicateNameError{Entity: "DMO", Name: data.Name}
		}
		return core.Dmo{}, &core.StorageError{Op: "create_dmo", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Dmo{}, &core.StorageError{Op: "create_dmo", Err: err}
	}
	return b.GetDmo(ctx, id)
}

func (b *SQLiteBackend) GetDmo(ctx context.Context, id int64) (core.Dmo, error) {
	row := b.db.QueryRowContext(ctx, "SELECT "+dmoColumns+" FROM dmos WHERE id = ?", id)
	dmo, err := b.scanDmo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Dmo{}, &core.DmoNotFoundError{ID: id}
	}
	if err != nil {
		return core.Dmo{}, &core.StorageError{Op: "get_dmo", Err: err}
	}
	return dmo, nil
}

func (b *SQLiteBackend) ListDmos(ctx context.Context, includeInactive bool) ([]core.Dmo, error) {
	query := "SELECT " + dmoColumns + " FROM dmos ORDER BY name ASC"
	if !includeInactive {
		query = "SELECT " + dmoColumns + " FROM dmos WHERE active = 1 ORDER BY name ASC"
	}

	rows, err := b.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &core.StorageError{Op: "list_dmos", Err: err}
	}
	defer rows.Close()

	out := make([]core.Dmo, 0)
	for rows.Next() {
		var r dmoRow
		if err := rows.Scan(&r.id, &r.name, &r.description, &r.active, &r.timezone, &r.createdAt, &r.updatedAt); err != nil {
			return nil, &core.StorageError{Op: "list_dmos", Err: err}
		}
		out = append(out, r.toDmo())
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "list_dmos", Err: err}
	}
	return out, nil
}

func (b *SQLiteBackend) UpdateDmo(ctx context.Context, id int64, data core.DmoUpdate) (core.Dmo, error) {
	if err := data.Validate(); err != nil {
		return core.Dmo{}, err
	}
	if err := b.ensureDmoExists(ctx, "update_dmo", id); err != nil {
		return core.Dmo{}, err
	}
	if data.IsZero() {
		return b.GetDmo(ctx, id)
	}

	// Dynamic partial update: only non-nil fields become SET clauses.
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	if data.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *data.Name)
	}
	if data.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *data.Description)
	}
	if data.Timezone != nil {
		sets = append(sets, "timezone = ?")
		args = append(args, *data.Timezone)
	}
	if data.Active != nil {
		sets = append(sets, "active = ?")
		args = append(args, boolToInt(*data.Active))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(core.UtcNow()), id)

	_, err := b.db.ExecContext(ctx, "UPDATE dmos SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		if isUniqueViolation(err, "dmos.name") {
			name := ""
			if data.Name != nil {
				name = *data.Name
			}
			return core.Dmo{}, &core.DuplicateNameError{Entity: "DMO", Name: name}
		}
		return core.Dmo{}, &core.StorageError{Op: "update_dmo", Err: err}
	}

	return b.GetDmo(ctx, id)
}

func (b *SQLiteBackend) DeleteDmo(ctx context.Context, id int64) error {
	if err := b.ensureDmoExists(ctx, "delete_dmo", id); err != nil {
		return err
	}
	// ON DELETE CASCADE removes activities and completions with the DMO.
	if _, err := b.db.ExecContext(ctx, "DELETE FROM dmos WHERE id = ?", id); err != nil {
		return &core.StorageError{Op: "delete_dmo", Err: err}
	}
	return nil
}

const activityColumns = `id, dmo_id, name, "order", created_at, updated_at`

type activityRow struct {
	id        int64
	dmoID     int64
	name      string
	order     int
	createdAt string
	updatedAt string
}

func (r activityRow) toActivity() core.Activity {
	return core.Activity{
		ID:        r.id,
		DmoID:     r.dmoID,
		Name:      r.name,
		Order:     r.order,
		CreatedAt: parseTime(r.createdAt),
		UpdatedAt: parseTime(r.updatedAt),
	}
}

func (b *SQLiteBackend) CreateActivity(ctx context.Context, data core.ActivityCreate) (core.Activity, error) {
	if err := data.Validate(); err != nil {
		return core.Activity{}, err
	}
	if err := b.ensureDmoExists(ctx, "create_activity", data.DmoID); err != nil {
		return core.Activity{}, err
	}

	now := formatTime(core.UtcNow())
	res, err := b.db.ExecContext(ctx,
		`INSERT INTO activities (dmo_id, name, "order", created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		data.DmoID, data.Name, data.Order, now, now)
	if err != nil {
		return core.Activity{}, &core.StorageError{Op: "create_activity", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Activity{}, &core.StorageError{Op: "create_activity", Err: err}
	}
	return b.GetActivity(ctx, id)
}

func (b *SQLiteBackend) GetActivity(ctx context.Context, id int64) (core.Activity, error) {
	var r activityRow
	err := b.db.QueryRowContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE id = ?", id).
		Scan(&r.id, &r.dmoID, &r.name, &r.order, &r.createdAt, &r.updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Activity{}, &core.ActivityNotFoundError{ID: id}
	}
	if err != nil {
		return core.Activity{}, &core.StorageError{Op: "get_activity", Err: err}
	}
	return r.toActivity(), nil
}

func (b *SQLiteBackend) ListActivities(ctx context.Context, dmoID int64) ([]core.Activity, error) {
	if err := b.ensureDmoExists(ctx, "list_activities", dmoID); err != nil {
		return nil, err
	}

	rows, err := b.db.QueryContext(ctx,
		"SELECT "+activityColumns+` FROM activities WHERE dmo_id = ? ORDER BY "order" ASC, created_at ASC, id ASC`,
		dmoID)
	if err != nil {
		return nil, &core.StorageError{Op: "list_activities", Err: err}
	}
	defer rows.Close()

	out := make([]core.Activity, 0)
	for rows.Next() {
		var r activityRow
		if err := rows.Scan(&r.id, &r.dmoID, &r.name, &r.order, &r.createdAt, &r.updatedAt); err != nil {
			return nil, &core.StorageError{Op: "list_activities", Err: err}
		}
		out = append(out, r.toActivity())
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "list_activities", Err: err}
	}
	return out, nil
}

func (b *SQLiteBackend) UpdateActivity(ctx context.Context, id int64, data core.ActivityUpdate) (core.Activity, error) {
	if err := data.Validate(); err != nil {
		return core.Activity{}, err
	}
	if _, err := b.GetActivity(ctx, id); err != nil {
		return core.Activity{}, err
	}
	if data.IsZero() {
		return b.GetActivity(ctx, id)
	}

	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if data.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *data.Name)
	}
	if data.Order != nil {
		sets = append(sets, `"order" = ?`)
		args = append(args, *data.Order)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(core.UtcNow()), id)

	_, err := b.db.ExecContext(ctx, "UPDATE activities SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return core.Activity{}, &core.StorageError{Op: "update_activity", Err: err}
	}
	return b.GetActivity(ctx, id)
}

func (b *SQLiteBackend) DeleteActivity(ctx context.Context, id int64) error {
	if _, err := b.GetActivity(ctx, id); err != nil {
		return err
	}
	if _, err := b.db.ExecContext(ctx, "DELETE FROM activities WHERE id = ?", id); err != nil {
		return &core.StorageError{Op: "delete_activity", Err: err}
	}
	return nil
}

const completionColumns = "id, dmo_id, date, completed, note, created_at, updated_at"

type completionRow struct {
	id        int64
	dmoID     int64
	date      string
	completed int64
	note      sql.NullString
	createdAt string
	updatedAt string
}

func (r completionRow) toCompletion() (core.Completion, error) {
	day, err := core.ParseDate(r.date)
	if err != nil {
		return core.Completion{}, err
	}
	c := core.Completion{
		ID:        r.id,
		DmoID:     r.dmoID,
		Date:      day,
		Completed: r.completed != 0,
		CreatedAt: parseTime(r.createdAt),
		UpdatedAt: parseTime(r.updatedAt),
	}
	if r.note.Valid {
		v := r.note.String
		c.Note = &v
	}
	return c, nil
}

func (b *SQLiteBackend) SetCompletion(ctx context.Context, dmoID int64, day core.Date, completed bool, note *string) (core.Completion, error) {
	if err := b.ensureDmoExists(ctx, "set_completion", dmoID); err != nil {
		return core.Completion{}, err
	}

	// Single constrained write so concurrent callers never race on a separate
	// existence check. The conflict branch keeps id and created_at and fully
	// replaces note, including replacing it with NULL.
	now := formatTime(core.UtcNow())
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO dmo_completions (dmo_id, date, completed, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(dmo_id, date) DO UPDATE SET
			completed = excluded.completed,
			note = excluded.note,
			updated_at = excluded.updated_at`,
		dmoID, day.String(), boolToInt(completed), note, now, now)
	if err != nil {
		return core.Completion{}, &core.StorageError{Op: "set_completion", Err: err}
	}

	result, err := b.GetCompletion(ctx, dmoID, day)
	if err != nil {
		return core.Completion{}, err
	}
	if result == nil {
		return core.Completion{}, &core.StorageError{Op: "set_completion", Err: errors.New("upserted row missing")}
	}
	return *result, nil
}

func (b *SQLiteBackend) GetCompletion(ctx context.Context, dmoID int64, day core.Date) (*core.Completion, error) {
	if err := b.ensureDmoExists(ctx, "get_completion", dmoID); err != nil {
		return nil, err
	}

	var r completionRow
	err := b.db.QueryRowContext(ctx,
		"SELECT "+completionColumns+" FROM dmo_completions WHERE dmo_id = ? AND date = ?",
		dmoID, day.String()).
		Scan(&r.id, &r.dmoID, &r.date, &r.completed, &r.note, &r.createdAt, &r.updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &core.StorageError{Op: "get_completion", Err: err}
	}

	c, err := r.toCompletion()
	if err != nil {
		return nil, &core.StorageError{Op: "get_completion", Err: err}
	}
	return &c, nil
}

func (b *SQLiteBackend) ListCompletions(ctx context.Context, dmoID int64, start, end core.Date) ([]core.Completion, error) {
	if start.After(end.Time) {
		return nil, &core.InvalidRangeError{Start: start, End: end}
	}
	if err := b.ensureDmoExists(ctx, "list_completions", dmoID); err != nil {
		return nil, err
	}

	rows, err := b.db.QueryContext(ctx,
		"SELECT "+completionColumns+" FROM dmo_completions WHERE dmo_id = ? AND date >= ? AND date <= ? ORDER BY date ASC",
		dmoID, start.String(), end.String())
	if err != nil {
		return nil, &core.StorageError{Op: "list_completions", Err: err}
	}
	defer rows.Close()

	out := make([]core.Completion, 0)
	for rows.Next() {
		var r completionRow
		if err := rows.Scan(&r.id, &r.dmoID, &r.date, &r.completed, &r.note, &r.createdAt, &r.updatedAt); err != nil {
			return nil, &core.StorageError{Op: "list_completions", Err: err}
		}
		c, err := r.toCompletion()
		if err != nil {
			return nil, &core.StorageError{Op: "list_completions", Err: err}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "list_completions", Err: err}
	}
	return out, nil
}

func (b *SQLiteBackend) CountCompletedDays(ctx context.Context, dmoID int64, start, end core.Date) (int, error) {
	if start.After(end.Time) {
		return 0, &core.InvalidRangeError{Start: start, End: end}
	}
	if err := b.ensureDmoExists(ctx, "count_completed_days", dmoID); err != nil {
		return 0, err
	}

	var count int
	err := b.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM dmo_completions WHERE dmo_id = ? AND date >= ? AND date <= ? AND completed = 1",
		dmoID, start.String(), end.String()).Scan(&count)
	if err != nil {
		return 0, &core.StorageError{Op: "count_completed_days", Err: err}
	}
	return count, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
