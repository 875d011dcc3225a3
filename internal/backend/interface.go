// Package backend defines the storage contract every persistence variant must
// satisfy, plus a factory for constructing variants from configuration.
package backend

import (
	"context"

	"dmo/internal/core"
)

// Ports for the storage variants. Split by entity so collaborators can depend
// on the narrow capability they actually use.
type (
	// Lifecycle covers backend setup and teardown. Init is idempotent; a
	// backend must not be used after Close.
	Lifecycle interface {
		Init(ctx context.Context) error
		Close() error
	}

	DmoStore interface {
		// CreateDmo fails with DuplicateNameError when the trimmed name is taken.
		CreateDmo(ctx context.Context, data core.DmoCreate) (core.Dmo, error)
		// GetDmo fails with DmoNotFoundError when absent.
		GetDmo(ctx context.Context, id int64) (core.Dmo, error)
		// ListDmos returns DMOs ordered by name ascending. Inactive DMOs are
		// excluded unless includeInactive is set.
		ListDmos(ctx context.Context, includeInactive bool) ([]core.Dmo, error)
		// UpdateDmo applies only non-nil fields of data.
		UpdateDmo(ctx context.Context, id int64, data core.DmoUpdate) (core.Dmo, error)
		// DeleteDmo hard-deletes the DMO and cascades to its activities and
		// completions.
		DeleteDmo(ctx context.Context, id int64) error
	}

	ActivityStore interface {
		// CreateActivity fails with DmoNotFoundError when the owning DMO is absent.
		CreateActivity(ctx context.Context, data core.ActivityCreate) (core.Activity, error)
		GetActivity(ctx context.Context, id int64) (core.Activity, error)
		// ListActivities returns activities ordered by order ascending, ties
		// broken by creation order.
		ListActivities(ctx context.Context, dmoID int64) ([]core.Activity, error)
		UpdateActivity(ctx context.Context, id int64, data core.ActivityUpdate) (core.Activity, error)
		DeleteActivity(ctx context.Context, id int64) error
	}

	CompletionStore interface {
		// SetCompletion upserts the record for (dmoID, day) as a single
		// constrained write: the first call creates it, later calls overwrite
		// completed/note/updated_at in place, keeping id and created_at.
		SetCompletion(ctx context.Context, dmoID int64, day core.Date, completed bool, note *string) (core.Completion, error)
		// GetCompletion returns nil when no record exists; absence is not an
		// error. It still fails with DmoNotFoundError for an unknown DMO.
		GetCompletion(ctx context.Context, dmoID int64, day core.Date) (*core.Completion, error)
		// ListCompletions returns records in [start, end] ordered by date
		// ascending. Fails with InvalidRangeError when start > end.
		ListCompletions(ctx context.Context, dmoID int64, start, end core.Date) ([]core.Completion, error)
		// CountCompletedDays counts completed=true records in [start, end]
		// without materializing them.
		CountCompletedDays(ctx context.Context, dmoID int64, start, end core.Date) (int, error)
	}
)

// Backend is the full storage contract. All variants must be behaviorally
// indistinguishable through this interface.
type Backend interface {
	Lifecycle
	DmoStore
	ActivityStore
	CompletionStore
}

// CleanupFunc releases resources owned by a backend variant.
type CleanupFunc func() error

// Result contains a constructed backend and its optional cleanup function.
type Result struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Type selects a storage variant.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer.
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is known.
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Config holds settings for backend creation.
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string
}
