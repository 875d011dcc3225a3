package backend_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"dmo/internal/backend"
	"dmo/internal/core"
	"dmo/internal/memstore"
	"dmo/internal/storage"
)

// The contract suite runs identically against every storage variant. A
// variant that passes is behaviorally indistinguishable from the others
// through the Backend interface.

// Conformance is asserted here, outside package backend, so the variants
// never need to import it back.
var (
	_ backend.Backend = (*memstore.Store)(nil)
	_ backend.Backend = (*storage.SQLiteBackend)(nil)
)

type variant struct {
	name string
	open func(t *testing.T) backend.Backend
}

func variants() []variant {
	return []variant{
		{
			name: "memory",
			open: func(t *testing.T) backend.Backend {
				s := memstore.New()
				if err := s.Init(context.Background()); err != nil {
					t.Fatalf("init memory backend: %v", err)
				}
				return s
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) backend.Backend {
				s, err := storage.NewSQLiteBackend(filepath.Join(t.TempDir(), "dmo.db"))
				if err != nil {
					t.Fatalf("open sqlite backend: %v", err)
				}
				if err := s.Init(context.Background()); err != nil {
					t.Fatalf("init sqlite backend: %v", err)
				}
				return s
			},
		},
	}
}

func runAll(t *testing.T, name string, fn func(t *testing.T, b backend.Backend)) {
	for _, v := range variants() {
		t.Run(v.name+"/"+name, func(t *testing.T) {
			b := v.open(t)
			defer b.Close()
			fn(t, b)
		})
	}
}

func mustCreateDmo(t *testing.T, b backend.Backend, name string) core.Dmo {
	t.Helper()
	dmo, err := b.CreateDmo(context.Background(), core.DmoCreate{Name: name})
	if err != nil {
		t.Fatalf("create dmo %q: %v", name, err)
	}
	return dmo
}

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }
func boolptr(b bool) *bool    { return &b }

func TestInitIsIdempotent(t *testing.T) {
	runAll(t, "init", func(t *testing.T, b backend.Backend) {
		ctx := context.Background()
		if err := b.Init(ctx); err != nil {
			t.Fatalf("second init failed: %v", err)
		}
		if err := b.Init(ctx); err != nil {
			t.Fatalf("third init failed: %v", err)
		}
	})
}

func TestCreateAndGetDmo(t *testing.T) {
	runAll(t, "create_get", func(t *testing.T, b backend.Backend) {
		ctx := context.Background()
		created, err := b.CreateDmo(ctx, core.DmoCreate{
			Name:        "Morning Routine",
			Description: strptr("wake up early"),
			Timezone:    strptr("Europe/Rome"),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if created.ID == 0 {
			t.Fatalf("expected generated id")
		}
		if !created.Active {
			t.Fatalf("new dmo should default to active")
		}

		got, err := b.GetDmo(ctx, created.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Name != "Morning Routine" || got.Description == nil || *got.Description != "wake up early" {
			t.Fatalf("unexpected dmo: %+v", got)
		}
		if got.Timezone == nil || *got.Timezone != "Europe/Rome" {
			t.Fatalf("timezone not preserved: %+v", got)
		}
	})
}

func TestGetDmoNotFound(t *testing.T) {
	runAll(t, "get_missing", func(t *testing.T, b backend.Backend) {
		_, err := b.GetDmo(context.Background(), 9999)
		var nf *core.DmoNotFoundError
		if !errors.As(err, &nf) || nf.ID != 9999 {
			t.Fatalf("expected DmoNotFoundError with id, got %v", err)
		}
	})
}

func TestDuplicateNameOnCreate(t *testing.T) {
	runAll(t, "duplicate_create", func(t *testing.T, b backend.Backend) {
		ctx := context.Background()
		mustCreateDmo(t, b, "Reading")

		// Names are trimmed before the uniqueness check.
		_, err := b.CreateDmo(ctx, core.DmoCreate{Name: "  Reading  "})
		var dup *core.DuplicateNameError
		if !errors.As(err, &dup) || dup.Name != "Reading" {
			t.Fatalf("expected DuplicateNameError, got %v", err)
		}
	})
}

func TestDuplicateNameOnUpdate(t *testing.T) {
	runAll(t, "duplicate_update", func(t *testing.T, b backend.Backend) {
		ctx := context.Background()
		mustCreateDmo(t, b, "Reading")
		other := mustCreateDmo(t, b, "Writing")

		_, err := b.UpdateDmo(ctx, other.ID, core.DmoUpdate{Name: strptr("Reading")})
		var dup *core.DuplicateNameError
		if !errors.As(err, &dup) {
			t.Fatalf("expected DuplicateNameError, got %v", err)
		}

		// Renaming to its own current name is not a collision.
		if _, err := b.UpdateDmo(ctx, other.ID, core.DmoUpdate{Name: strptr("Writing")}); err != nil {
			t.Fatalf("self-rename failed: %v", err)
		}
	})
}

func TestListDmosOrderingAndActiveFilter(t *testing.T) {
	runAll(t, "list_dmos", func(t *testing.T, b backend.Backend) {
		ctx := context.Background()
		mustCreateDmo(t, b, "Zen Practice")
		middle := mustCreateDmo(t, b, "Meditation")
		mustCreateDmo(t, b, "Air Squats")

		if _, err := b.UpdateDmo(ctx, middle.ID, core.DmoUpdate{Active: boolptr(false)}); err != nil {
			t.Fatalf("deactivate: %v", err)
		}

		active, err := b.ListDmos(ctx, false)
		if err != nil {
			t.Fatalf("list active: %v", err)
		}
		if len(active) != 2 || active[0].Name != "Air Squats" || active[1].Name != "Zen Practice" {
			t.Fatalf("unexpected active list: %+v", active)
		}

		all, err := b.ListDmos(ctx, true)
		if err != nil {
			t.Fatalf("list all: %v", err)
		}
		if len(all) != 3 || all[1].Name != "Meditation" {
			t.Fatalf("unexpected full list: %+v", all)
		}
	})
}

func TestUpdateDmoPartialFields(t *testing.T) {
	runAll(t, "partial_update", func(t *testing.T, b backend.Backend) {
		ctx := context.Background()
		dmo, err := b.CreateDmo(ctx, core.DmoCreate{Name: "Running", Description: strptr("5k")})
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		updated, err := b.UpdateDmo(ctx, dmo.ID, core.DmoUpdate{Description: strptr("10k")})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Name != "Running" {
			t.Fatalf("name should be untouched, got %q", updated.Name)
		}
		if updated.Description == nil || *updated.Description != "10k" {
			t.Fatalf("description not updated: %+v", updated)
		}
		if !updated.CreatedAt.Equal(dmo.CreatedAt) {
			t.Fatalf("created_at must not change on update")
		}

		// An update with no fields is a no-op returning the current snapshot.
		same, err := b.UpdateDmo(ctx, dmo.ID, core.DmoUpdate{})
		if err != nil {
			t.Fatalf("empty update: %v", err)
		}
		if same.Description == nil || *same.Description != "10k" {
			t.Fatalf("empty update altered fields: %+v", same)
		}
	})
}

func TestDeleteDmoCascades(t *testing.T) {
	runAll(t, "cascade", func(t *testing.T, b backend.Backend) {
		ctx := context.Background()
		dmo := mustCreateDmo(t, b, "Journal")

		act, err := b.CreateActivity(ctx, core.ActivityCreate{DmoID: dmo.ID, Name: "Write a page"})
		if err != nil {
			t.Fatalf("create activity: %v", err)
		}
		if _, err := b.SetCompletion(ctx, dmo.ID, core.NewDate(2026, 2, 1), true, nil); err != nil {
			t.Fatalf("set completion: %v", err)
		}

		if err := b.DeleteDmo(ctx, dmo.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}

		if _, err := b.GetDmo(ctx, dmo.ID); !core.IsNotFound(err) {
			t.Fatalf("expected dmo gone, got %v", err)
		}
		if _, err := b.GetActivity(ctx, act.ID); !core.IsNotFound(err) {
			t.Fatalf("expected activity gone, got %v", err)
		}
		if _, err := b.GetCompletion(ctx, dmo.ID, core.NewDate(2026, 2, 1)); !core.IsNotFound(err) {
			t.Fatalf("expected completion lookup to fail with not-found, got %v", err)
		}
	})
}

func TestActivityRequiresExistingDmo(t *testing.T) {
	runAll(t, "activity_fk", func(t *testing.T, b backend.Backend) {
		_, err := b.CreateActivity(context.Background(), core.ActivityCreate{DmoID: 4242, Name: "orphan"})
		var nf *core.DmoNotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("expected DmoNotFoundError, got %v", err)
		}
	})
}

func TestListActivitiesOrdering(t *testing.T) {
	runAll(t, "activity_order", func(t *testing.T, b backend.Backend) {
		ctx := context.Background()
		dmo := mustCreateDmo(t, b, "Gym")

		// Insert out of order-field order; list must sort by order asc.
		for _, a := range []struct {
			name  string
			order int
		}{{"cooldown", 2}, {"lift", 1}, {"warmup", 0}} {
			if _, err := b.CreateActivity(ctx, core.ActivityCreate{DmoID: dmo.ID, Name: a.name, Order: a.order}); err != nil {
				t.Fatalf("create %s: %v", a.name, err)
			}
		}

		got, err := b.ListActivities(ctx, dmo.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		want := []string{"warmup", "lift", "cooldown"}
		for i, name := range want {
			if got[i].Name != name {
				t.Fatalf("index %d: expected %s, got %s", i, name, got[i].Name)
			}
		}
	})
}

func TestListActivitiesTieBreakByCreation(t *testing.T) {
	runAll(t, "activity_ties", func(t *testing.T, b backend.Backend) {
		ctx := context.Background()
		dmo := mustCreateDmo(t, b, "Stretching")

		first, _ := b.CreateActivity(ctx, core.ActivityCreate{DmoID: dmo.ID, Name: "first", Order: 0})
		second, _ := b.CreateActivity(ctx, core.ActivityCreate{DmoID: dmo.ID, Name: "second", Order: 0})

		got, err := b.ListActivities(ctx, dmo.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 2 || got[0].ID != first.ID || got[1].ID != second.ID {
			t.Fatalf("ties should keep creation order: %+v", got)
		}
	})
}

func TestActivityDeleteLeavesCompletionsAlone(t *testing.T) {
	runAll(t, "activity_advisory", func(t *testing.T, b backend.Backend) {
		ctx := context.Background()
		dmo := mustCreateDmo(t, b, "Cardio")
		act, _ := b.CreateActivity(ctx, core.ActivityCreate{DmoID: dmo.ID, Name: "run"})
		day := core.NewDate(2026, 2, 3)
		if _, err := b.SetCompletion(ctx, dmo.ID, day, true, nil); err != nil {
			t.Fatalf("set completion: %v", err)
		}

		if err := b.DeleteActivity(ctx, act.ID); err != nil {
			t.Fatalf("delete activity: %v", err)
		}

		got, err := b.GetCompletion(ctx, dmo.ID, day)
		if err != nil || got == nil || !got.Completed {
			t.Fatalf("completion must survive activity deletion: %v %v", got, err)
		}
	})
}

func TestSetCompletionIdempotence(t *testing.T) {
	runAll(t, "upsert_idempotent", func(t *testing.T, b backend.Backend) {
		ctx := context.Background()
		dmo := mustCreateDmo(t, b, "Piano")
		day := core.NewDate(2026, 2, 14)

		first, err := b.SetCompletion(ctx, dmo.ID, day, true, strptr("scales"))
		if err != nil {
			t.Fatalf("first set: %v", err)
		}
		second, err := b.SetCompletion(ctx, dmo.ID, day, true, strptr("scales"))
		if err != nil {
			t.Fatalf("second set: %v", err)
		}

		if first.ID != second.ID {
			t.Fatalf("upsert must preserve identity: %d != %d", first.ID, second.ID)
		}
		if !first.CreatedAt.Equal(second.CreatedAt) {
			t.Fatalf("upsert must preserve created_at")
		}
		if second.Completed != first.Completed || *second.Note != *first.Note {
			t.Fatalf("field mismatch between identical calls")
		}
	})
}

func TestSetCompletionOverwritesNote(t *testing.T) {
	runAll(t, "note_overwrite", func(t *testing.T, b backend.Backend) {
		ctx := context.Background()
		dmo := mustCreateDmo(t, b, "Guitar")
		day := core.NewDate(2026, 2, 20)

		if _, err := b.SetCompletion(ctx, dmo.ID, day, true, strptr("chords")); err != nil {
			t.Fatalf("set: %v", err)
		}
		// A call without a note clears the stored note; every call fully
		// assigns the note field.
		updated, err := b.SetCompletion(ctx, dmo.ID, day, false, nil)
		if err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		if updated.Note != nil {
			t.Fatalf("note should be cleared, got %q", *updated.Note)
		}
		if updated.Completed {
			t.Fatalf("completed should be overwritten to false")
		}
	})
}

func TestGetCompletionAbsentIsNil(t *testing.T) {
	runAll(t, "absent_completion", func(t *testing.T, b backend.Backend) {
		ctx := context.Background()
		dmo := mustCreateDmo(t, b, "Yoga")

		got, err := b.GetCompletion(ctx, dmo.ID, core.NewDate(2026, 2, 1))
		if err != nil {
			t.Fatalf("absence must not be an error: %v", err)
		}
		if got != nil {
			t.Fatalf("expected nil for absent record, got %+v", got)
		}

		// But an unknown DMO is still an error.
		if _, err := b.GetCompletion(ctx, 8888, core.NewDate(2026, 2, 1)); !core.IsNotFound(err) {
			t.Fatalf("expected not-found for unknown dmo, got %v", err)
		}
	})
}

func TestListCompletionsOrderedAndBounded(t *testing.T) {
	runAll(t, "list_completions", func(t *testing.T, b backend.Backend) {
		ctx := context.Background()
		dmo := mustCreateDmo(t, b, "Swim")

		// Insert out of date order.
		for _, day := range []core.Date{
			core.NewDate(2026, 2, 9),
			core.NewDate(2026, 2, 2),
			core.NewDate(2026, 2, 5),
			core.NewDate(2026, 1, 31), // outside range
		} {
			if _, err := b.SetCompletion(ctx, dmo.ID, day, true, nil); err != nil {
				t.Fatalf("set %s: %v", day, err)
			}
		}

		got, err := b.ListCompletions(ctx, dmo.ID, core.NewDate(2026, 2, 1), core.NewDate(2026, 2, 28))
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		want := []string{"2026-02-02", "2026-02-05", "2026-02-09"}
		if len(got) != len(want) {
			t.Fatalf("expected %d records, got %d", len(want), len(got))
		}
		for i, d := range want {
			if got[i].Date.String() != d {
				t.Fatalf("index %d: expected %s, got %s", i, d, got[i].Date)
			}
		}
	})
}

func TestListCompletionsInvalidRange(t *testing.T) {
	runAll(t, "invalid_range", func(t *testing.T, b backend.Backend) {
		ctx := context.Background()
		dmo := mustCreateDmo(t, b, "Walk")

		_, err := b.ListCompletions(ctx, dmo.ID, core.NewDate(2026, 2, 10), core.NewDate(2026, 2, 1))
		var ire *core.InvalidRangeError
		if !errors.As(err, &ire) {
			t.Fatalf("expected InvalidRangeError, got %v", err)
		}

		if _, err := b.CountCompletedDays(ctx, dmo.ID, core.NewDate(2026, 2, 10), core.NewDate(2026, 2, 1)); !errors.As(err, &ire) {
			t.Fatalf("count should reject reversed ranges too, got %v", err)
		}
	})
}

func TestCountCompletedDays(t *testing.T) {
	runAll(t, "count_completed", func(t *testing.T, b backend.Backend) {
		ctx := context.Background()
		dmo := mustCreateDmo(t, b, "Stretch")

		completions := []struct {
			day  core.Date
			done bool
		}{
			{core.NewDate(2026, 3, 1), true},
			{core.NewDate(2026, 3, 2), false},
			{core.NewDate(2026, 3, 3), true},
			{core.NewDate(2026, 4, 1), true}, // outside range
		}
		for _, c := range completions {
			if _, err := b.SetCompletion(ctx, dmo.ID, c.day, c.done, nil); err != nil {
				t.Fatalf("set %s: %v", c.day, err)
			}
		}

		count, err := b.CountCompletedDays(ctx, dmo.ID, core.NewDate(2026, 3, 1), core.NewDate(2026, 3, 31))
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != 2 {
			t.Fatalf("expected 2 completed days, got %d", count)
		}
	})
}

func TestUpdateActivityFields(t *testing.T) {
	runAll(t, "update_activity", func(t *testing.T, b backend.Backend) {
		ctx := context.Background()
		dmo := mustCreateDmo(t, b, "Chess")
		act, _ := b.CreateActivity(ctx, core.ActivityCreate{DmoID: dmo.ID, Name: "tactics", Order: 1})

		updated, err := b.UpdateActivity(ctx, act.ID, core.ActivityUpdate{Order: intptr(5)})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Name != "tactics" || updated.Order != 5 {
			t.Fatalf("unexpected activity after update: %+v", updated)
		}

		_, err = b.UpdateActivity(ctx, 31337, core.ActivityUpdate{Order: intptr(1)})
		var nf *core.ActivityNotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("expected ActivityNotFoundError, got %v", err)
		}
	})
}

func TestFactoryCreatesConfiguredVariant(t *testing.T) {
	ctx := context.Background()
	factory := backend.NewFactory(nil)

	mem, err := factory.CreateBackend(ctx, backend.Config{Type: backend.MemoryBackend})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if mem.Backend == nil {
		t.Fatalf("expected backend instance")
	}

	sq, err := factory.CreateBackend(ctx, backend.Config{
		Type:         backend.SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "dmo.db"),
	})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer sq.Cleanup()

	if _, err := factory.CreateBackend(ctx, backend.Config{Type: "postgres"}); err == nil {
		t.Fatalf("expected error for unknown backend type")
	}
}

func TestBackendTypeValidation(t *testing.T) {
	if !backend.SQLiteBackend.IsValid() || !backend.MemoryBackend.IsValid() {
		t.Fatalf("known types must validate")
	}
	if backend.Type("bogus").IsValid() {
		t.Fatalf("unknown type must not validate")
	}
	if backend.SQLiteBackend.String() != "sqlite" {
		t.Fatalf("unexpected string form")
	}
}
