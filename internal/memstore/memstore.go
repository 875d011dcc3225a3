// Package memstore provides the volatile in-memory storage variant. It is
// behaviorally equivalent to the SQLite variant and is used by tests and by
// deployments that do not need durability.
package memstore

import (
	"context"
	"sort"
	"sync"

	"dmo/internal/core"
)

type completionKey struct {
	dmoID int64
	day   string
}

// Store keeps all entities in maps guarded by a single mutex. All data is
// lost when the process exits.
type Store struct {
	mu          sync.Mutex
	dmos        map[int64]core.Dmo
	activities  map[int64]core.Activity
	completions map[completionKey]core.Completion

	nextDmoID        int64
	nextActivityID   int64
	nextCompletionID int64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		dmos:             make(map[int64]core.Dmo),
		activities:       make(map[int64]core.Activity),
		completions:      make(map[completionKey]core.Completion),
		nextDmoID:        1,
		nextActivityID:   1,
		nextCompletionID: 1,
	}
}

// Init is a no-op for the memory variant.
func (s *Store) Init(_ context.Context) error {
	return nil
}

// Close drops all data.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dmos = make(map[int64]core.Dmo)
	s.activities = make(map[int64]core.Activity)
	s.completions = make(map[completionKey]core.Completion)
	return nil
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneDmo(d core.Dmo) core.Dmo {
	d.Description = cloneStr(d.Description)
	d.Timezone = cloneStr(d.Timezone)
	return d
}

func cloneCompletion(c core.Completion) core.Completion {
	c.Note = cloneStr(c.Note)
	return c
}

func (s *Store) CreateDmo(_ context.Context, data core.DmoCreate) (core.Dmo, error) {
	if err := data.Validate(); err != nil {
		return core.Dmo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.dmos {
		if d.Name == data.Name {
			return core.Dmo{}, &core.DuplicateNameError{Entity: "DMO", Name: data.Name}
		}
	}

	now := core.UtcNow()
	dmo := core.Dmo{
		ID:          s.nextDmoID,
		Name:        data.Name,
		Description: cloneStr(data.Description),
		Active:      true,
		Timezone:    cloneStr(data.Timezone),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.nextDmoID++
	s.dmos[dmo.ID] = dmo
	return cloneDmo(dmo), nil
}

func (s *Store) GetDmo(_ context.Context, id int64) (core.Dmo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dmo, ok := s.dmos[id]
	if !ok {
		return core.Dmo{}, &core.DmoNotFoundError{ID: id}
	}
	return cloneDmo(dmo), nil
}

func (s *Store) ListDmos(_ context.Context, includeInactive bool) ([]core.Dmo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Dmo, 0, len(s.dmos))
	for _, d := range s.dmos {
		if !includeInactive && !d.Active {
			continue
		}
		out = append(out, cloneDmo(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateDmo(_ context.Context, id int64, data core.DmoUpdate) (core.Dmo, error) {
	if err := data.Validate(); err != nil {
		return core.Dmo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.dmos[id]
	if !ok {
		return core.Dmo{}, &core.DmoNotFoundError{ID: id}
	}

	if data.Name != nil && *data.Name != existing.Name {
		for _, d := range s.dmos {
			if d.ID != id && d.Name == *data.Name {
				return core.Dmo{}, &core.DuplicateNameError{Entity: "DMO", Name: *data.Name}
			}
		}
	}

	updated := existing
	if data.Name != nil {
		updated.Name = *data.Name
	}
	if data.Description != nil {
		updated.Description = cloneStr(data.Description)
	}
	if data.Timezone != nil {
		updated.Timezone = cloneStr(data.Timezone)
	}
	if data.Active != nil {
		updated.Active = *data.Active
	}
	updated.UpdatedAt = core.UtcNow()

	s.dmos[id] = updated
	return cloneDmo(updated), nil
}

func (s *Store) DeleteDmo(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dmos[id]; !ok {
		return &core.DmoNotFoundError{ID: id}
	}

	for aid, a := range s.activities {
		if a.DmoID == id {
			delete(s.activities, aid)
		}
	}
	for key := range s.completions {
		if key.dmoID == id {
			delete(s.completions, key)
		}
	}
	delete(s.dmos, id)
	return nil
}

func (s *Store) CreateActivity(_ context.Context, data core.ActivityCreate) (core.Activity, error) {
	if err := data.Validate(); err != nil {
		return core.Activity{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dmos[data.DmoID]; !ok {
		return core.Activity{}, &core.DmoNotFoundError{ID: data.DmoID}
	}

	now := core.UtcNow()
	activity := core.Activity{
		ID:        s.nextActivityID,
		DmoID:     data.DmoID,
		Name:      data.Name,
		Order:     data.Order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextActivityID++
	s.activities[activity.ID] = activity
	return activity, nil
}

func (s *Store) GetActivity(_ context.Context, id int64) (core.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	activity, ok := s.activities[id]
	if !ok {
		return core.Activity{}, &core.ActivityNotFoundError{ID: id}
	}
	return activity, nil
}

func (s *Store) ListActivities(_ context.Context, dmoID int64) ([]core.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dmos[dmoID]; !ok {
		return nil, &core.DmoNotFoundError{ID: dmoID}
	}

	out := make([]core.Activity, 0)
	for _, a := range s.activities {
		if a.DmoID == dmoID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		// Creation-time ties resolve by insertion order via the sequential ID.
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateActivity(_ context.Context, id int64, data core.ActivityUpdate) (core.Activity, error) {
	if err := data.Validate(); err != nil {
		return core.Activity{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.activities[id]
	if !ok {
		return core.Activity{}, &core.ActivityNotFoundError{ID: id}
	}

	updated := existing
	if data.Name != nil {
		updated.Name = *data.Name
	}
	if data.Order != nil {
		updated.Order = *data.Order
	}
	updated.UpdatedAt = core.UtcNow()

	s.activities[id] = updated
	return updated, nil
}

func (s *Store) DeleteActivity(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[id]; !ok {
		return &core.ActivityNotFoundError{ID: id}
	}
	delete(s.activities, id)
	return nil
}

func (s *Store) SetCompletion(_ context.Context, dmoID int64, day core.Date, completed bool, note *string) (core.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dmos[dmoID]; !ok {
		return core.Completion{}, &core.DmoNotFoundError{ID: dmoID}
	}

	key := completionKey{dmoID: dmoID, day: day.String()}
	now := core.UtcNow()

	if existing, ok := s.completions[key]; ok {
		// Upsert keeps identity: same id and created_at, note fully replaced.
		existing.Completed = completed
		existing.Note = cloneStr(note)
		existing.UpdatedAt = now
		s.completions[key] = existing
		return cloneCompletion(existing), nil
	}

	completion := core.Completion{
		ID:        s.nextCompletionID,
		DmoID:     dmoID,
		Date:      day,
		Completed: completed,
		Note:      cloneStr(note),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextCompletionID++
	s.completions[key] = completion
	return cloneCompletion(completion), nil
}

func (s *Store) GetCompletion(_ context.Context, dmoID int64, day core.Date) (*core.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dmos[dmoID]; !ok {
		return nil, &core.DmoNotFoundError{ID: dmoID}
	}

	completion, ok := s.completions[completionKey{dmoID: dmoID, day: day.String()}]
	if !ok {
		return nil, nil
	}
	c := cloneCompletion(completion)
	return &c, nil
}

func (s *Store) ListCompletions(_ context.Context, dmoID int64, start, end core.Date) ([]core.Completion, error) {
	if start.After(end.Time) {
		return nil, &core.InvalidRangeError{Start: start, End: end}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dmos[dmoID]; !ok {
		return nil, &core.DmoNotFoundError{ID: dmoID}
	}

	out := make([]core.Completion, 0)
	for key, c := range s.completions {
		if key.dmoID != dmoID {
			continue
		}
		if c.Date.Before(start.Time) || c.Date.After(end.Time) {
			continue
		}
		out = append(out, cloneCompletion(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out, nil
}

func (s *Store) CountCompletedDays(_ context.Context, dmoID int64, start, end core.Date) (int, error) {
	if start.After(end.Time) {
		return 0, &core.InvalidRangeError{Start: start, End: end}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dmos[dmoID]; !ok {
		return 0, &core.DmoNotFoundError{ID: dmoID}
	}

	count := 0
	for key, c := range s.completions {
		if key.dmoID != dmoID || !c.Completed {
			continue
		}
		if c.Date.Before(start.Time) || c.Date.After(end.Time) {
			continue
		}
		count++
	}
	return count, nil
}
