// Package services orchestrates DMO operations across the storage backend and
// the AMQP event stream.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"dmo/internal/backend"
	"dmo/internal/core"
)

// monthlyReportConcurrency bounds the fan-out when assembling reports for
// every active DMO at once.
const monthlyReportConcurrency = 4

// CompletionPublisher emits an event after a completion record changes.
// Implemented by the AMQP client; nil disables publishing.
type CompletionPublisher interface {
	PublishCompletionSet(ctx context.Context, dmoID int64, day core.Date, completed bool) error
}

// DmoService is the application core: validation, reporting and event
// publication on top of a storage backend.
type DmoService struct {
	store     backend.Backend
	publisher CompletionPublisher
	logger    *slog.Logger
}

func NewDmoService(store backend.Backend, publisher CompletionPublisher, logger *slog.Logger) *DmoService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DmoService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateDmo validates the payload and stores a new DMO.
func (s *DmoService) CreateDmo(ctx context.Context, data core.DmoCreate) (core.Dmo, error) {
	if err := data.Validate(); err != nil {
		return core.Dmo{}, err
	}
	return s.store.CreateDmo(ctx, data)
}

func (s *DmoService) GetDmo(ctx context.Context, id int64) (core.Dmo, error) {
	return s.store.GetDmo(ctx, id)
}

func (s *DmoService) ListDmos(ctx context.Context, includeInactive bool) ([]core.Dmo, error) {
	return s.store.ListDmos(ctx, includeInactive)
}

func (s *DmoService) UpdateDmo(ctx context.Context, id int64, data core.DmoUpdate) (core.Dmo, error) {
	if err := data.Validate(); err != nil {
		return core.Dmo{}, err
	}
	return s.store.UpdateDmo(ctx, id, data)
}

func (s *DmoService) DeleteDmo(ctx context.Context, id int64) error {
	return s.store.DeleteDmo(ctx, id)
}

// Activate flips the DMO's active flag on. Deactivate is the inverse; neither
// touches any other field.
func (s *DmoService) Activate(ctx context.Context, id int64) (core.Dmo, error) {
	return s.setActive(ctx, id, true)
}

func (s *DmoService) Deactivate(ctx context.Context, id int64) (core.Dmo, error) {
	return s.setActive(ctx, id, false)
}

func (s *DmoService) setActive(ctx context.Context, id int64, active bool) (core.Dmo, error) {
	return s.store.UpdateDmo(ctx, id, core.DmoUpdate{Active: &active})
}

func (s *DmoService) CreateActivity(ctx context.Context, data core.ActivityCreate) (core.Activity, error) {
	if err := data.Validate(); err != nil {
		return core.Activity{}, err
	}
	return s.store.CreateActivity(ctx, data)
}

func (s *DmoService) GetActivity(ctx context.Context, id int64) (core.Activity, error) {
	return s.store.GetActivity(ctx, id)
}

func (s *DmoService) ListActivities(ctx context.Context, dmoID int64) ([]core.Activity, error) {
	return s.store.ListActivities(ctx, dmoID)
}

func (s *DmoService) UpdateActivity(ctx context.Context, id int64, data core.ActivityUpdate) (core.Activity, error) {
	if err := data.Validate(); err != nil {
		return core.Activity{}, err
	}
	return s.store.UpdateActivity(ctx, id, data)
}

func (s *DmoService) DeleteActivity(ctx context.Context, id int64) error {
	return s.store.DeleteActivity(ctx, id)
}

// ReorderActivities assigns each listed activity an order equal to its
// position in the list, then returns the DMO's activities in the resulting
// order. Ids are not checked against DMO ownership; an id from another DMO is
// reordered in place there.
func (s *DmoService) ReorderActivities(ctx context.Context, dmoID int64, orderedIDs []int64) ([]core.Activity, error) {
	if _, err := s.store.GetDmo(ctx, dmoID); err != nil {
		return nil, err
	}
	for idx, id := range orderedIDs {
		order := idx
		if _, err := s.store.UpdateActivity(ctx, id, core.ActivityUpdate{Order: &order}); err != nil {
			return nil, fmt.Errorf("reorder activity %d: %w", id, err)
		}
	}
	return s.store.ListActivities(ctx, dmoID)
}

// MarkComplete records the DMO as done for the day and publishes a completion
// event. Calling it again for the same day overwrites the existing record.
func (s *DmoService) MarkComplete(ctx context.Context, dmoID int64, day core.Date, note *string) (core.Completion, error) {
	return s.setCompletion(ctx, dmoID, day, true, note)
}

// MarkIncomplete records the DMO as explicitly not done for the day.
func (s *DmoService) MarkIncomplete(ctx context.Context, dmoID int64, day core.Date, note *string) (core.Completion, error) {
	return s.setCompletion(ctx, dmoID, day, false, note)
}

func (s *DmoService) setCompletion(ctx context.Context, dmoID int64, day core.Date, completed bool, note *string) (core.Completion, error) {
	rec, err := s.store.SetCompletion(ctx, dmoID, day, completed, note)
	if err != nil {
		return core.Completion{}, err
	}

	// Publish async; the record is already stored, so a broker failure must
	// not fail the request.
	if s.publisher != nil {
		if err := s.publisher.PublishCompletionSet(ctx, dmoID, day, completed); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish completion event",
				"dmo_id", dmoID, "date", day.String(), "error", err)
		}
	}

	return rec, nil
}

func (s *DmoService) GetCompletion(ctx context.Context, dmoID int64, day core.Date) (*core.Completion, error) {
	return s.store.GetCompletion(ctx, dmoID, day)
}

func (s *DmoService) ListCompletions(ctx context.Context, dmoID int64, start, end core.Date) ([]core.Completion, error) {
	return s.store.ListCompletions(ctx, dmoID, start, end)
}

// GetDailyReport assembles the status of every active DMO for one date. A DMO
// without a completion record for the date counts as not completed.
func (s *DmoService) GetDailyReport(ctx context.Context, day core.Date) (core.DailyReport, error) {
	dmos, err := s.store.ListDmos(ctx, false)
	if err != nil {
		return core.DailyReport{}, err
	}

	report := core.DailyReport{Date: day, Dmos: make([]core.DmoDailyStatus, 0, len(dmos))}
	for _, d := range dmos {
		rec, err := s.store.GetCompletion(ctx, d.ID, day)
		if err != nil {
			return core.DailyReport{}, err
		}
		activities, err := s.store.ListActivities(ctx, d.ID)
		if err != nil {
			return core.DailyReport{}, err
		}

		status := core.DmoDailyStatus{Dmo: d, Activities: make([]string, 0, len(activities))}
		for _, a := range activities {
			status.Activities = append(status.Activities, a.Name)
		}
		if rec != nil {
			status.Completed = rec.Completed
			status.Note = rec.Note
		}
		report.Dmos = append(report.Dmos, status)
	}

	return report, nil
}

// GetMonthlyReport builds the full month view for a single DMO.
func (s *DmoService) GetMonthlyReport(ctx context.Context, dmoID int64, year, month int) (core.MonthlyReport, error) {
	dmo, err := s.store.GetDmo(ctx, dmoID)
	if err != nil {
		return core.MonthlyReport{}, err
	}
	return s.buildMonthlyReport(ctx, dmo, year, month)
}

// GetMonthlyReports builds the month view for every active DMO, fanning out
// the per-DMO work while keeping the name-sorted result order.
func (s *DmoService) GetMonthlyReports(ctx context.Context, year, month int) ([]core.MonthlyReport, error) {
	dmos, err := s.store.ListDmos(ctx, false)
	if err != nil {
		return nil, err
	}

	reports := make([]core.MonthlyReport, len(dmos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(monthlyReportConcurrency)
	for i, d := range dmos {
		g.Go(func() error {
			report, err := s.buildMonthlyReport(gctx, d, year, month)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return reports, nil
}

func (s *DmoService) buildMonthlyReport(ctx context.Context, dmo core.Dmo, year, month int) (core.MonthlyReport, error) {
	start := core.NewDate(year, month, 1)
	end := core.NewDate(year, month, core.DaysInMonth(year, month))

	days, err := core.DateRange(start, end)
	if err != nil {
		return core.MonthlyReport{}, err
	}

	records, err := s.store.ListCompletions(ctx, dmo.ID, start, end)
	if err != nil {
		return core.MonthlyReport{}, err
	}

	byDate := make(map[string]core.Completion, len(records))
	completed := make(core.DateSet, len(records))
	for _, rec := range records {
		byDate[rec.Date.String()] = rec
		if rec.Completed {
			completed.Add(rec.Date)
		}
	}

	report := core.MonthlyReport{
		Dmo:   dmo,
		Year:  year,
		Month: month,
		Days:  make([]core.DayCompletion, 0, len(days)),
	}
	var missed []core.Date
	for _, day := range days {
		entry := core.DayCompletion{Date: day}
		if rec, ok := byDate[day.String()]; ok {
			entry.Completed = rec.Completed
			entry.Note = rec.Note
		}
		if !entry.Completed {
			missed = append(missed, day)
		}
		report.Days = append(report.Days, entry)
	}

	current, longest := core.CalculateStreaks(completed, days)
	report.Summary = core.MonthSummary{
		TotalDays:      len(days),
		CompletedDays:  len(completed),
		CompletionRate: core.CompletionRate(len(completed), len(days)),
		CurrentStreak:  current,
		LongestStreak:  longest,
		MissedDays:     missed,
	}

	return report, nil
}

// GetDmoSummary aggregates completions over an arbitrary inclusive range.
func (s *DmoService) GetDmoSummary(ctx context.Context, dmoID int64, start, end core.Date) (core.DmoSummary, error) {
	dmo, err := s.store.GetDmo(ctx, dmoID)
	if err != nil {
		return core.DmoSummary{}, err
	}

	days, err := core.DateRange(start, end)
	if err != nil {
		return core.DmoSummary{}, err
	}

	records, err := s.store.ListCompletions(ctx, dmoID, start, end)
	if err != nil {
		return core.DmoSummary{}, err
	}

	completed := make(core.DateSet, len(records))
	for _, rec := range records {
		if rec.Completed {
			completed.Add(rec.Date)
		}
	}

	current, longest := core.CalculateStreaks(completed, days)
	return core.DmoSummary{
		Dmo:            dmo,
		StartDate:      start,
		EndDate:        end,
		TotalDays:      len(days),
		CompletedDays:  len(completed),
		CompletionRate: core.CompletionRate(len(completed), len(days)),
		CurrentStreak:  current,
		LongestStreak:  longest,
	}, nil
}
