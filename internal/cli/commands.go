package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"dmo/internal/core"
	"dmo/internal/services"
)

// Context is passed to every command's Run method.
type Context struct {
	Ctx     context.Context
	Service *services.DmoService
	Out     io.Writer
}

// resolveDmo accepts either a numeric id or an exact (case-insensitive) name.
func resolveDmo(cctx *Context, ref string) (core.Dmo, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return cctx.Service.GetDmo(cctx.Ctx, id)
	}

	dmos, err := cctx.Service.ListDmos(cctx.Ctx, true)
	if err != nil {
		return core.Dmo{}, err
	}
	for _, d := range dmos {
		if strings.EqualFold(d.Name, ref) {
			return d, nil
		}
	}
	return core.Dmo{}, fmt.Errorf("no DMO matches %q", ref)
}

func parseDateFlag(s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Today(), nil
	}
	return core.ParseDate(s)
}

type CreateCmd struct {
	Name        string   `arg:"" help:"Name of the new DMO."`
	Description string   `short:"d" help:"Optional description."`
	Timezone    string   `short:"t" help:"Optional IANA timezone label."`
	Activity    []string `short:"A" help:"Activity to add, in order. Repeatable."`
}

func (c *CreateCmd) Run(cctx *Context) error {
	data := core.DmoCreate{Name: c.Name}
	if c.Description != "" {
		data.Description = &c.Description
	}
	if c.Timezone != "" {
		data.Timezone = &c.Timezone
	}

	dmo, err := cctx.Service.CreateDmo(cctx.Ctx, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(cctx.Out, "Created DMO %d: %s\n", dmo.ID, dmo.Name)

	for i, name := range c.Activity {
		activity, err := cctx.Service.CreateActivity(cctx.Ctx, core.ActivityCreate{
			DmoID: dmo.ID,
			Name:  name,
			Order: i,
		})
		if err != nil {
			return fmt.Errorf("add activity %q: %w", name, err)
		}
		fmt.Fprintf(cctx.Out, "  + activity %d: %s\n", activity.ID, activity.Name)
	}
	return nil
}

type ListCmd struct {
	All bool `short:"a" help:"Include inactive DMOs."`
}

func (c *ListCmd) Run(cctx *Context) error {
	dmos, err := cctx.Service.ListDmos(cctx.Ctx, c.All)
	if err != nil {
		return err
	}
	if len(dmos) == 0 {
		fmt.Fprintln(cctx.Out, "No DMOs yet. Create one with: dmo create <name>")
		return nil
	}
	for _, d := range dmos {
		marker := " "
		if !d.Active {
			marker = "-"
		}
		desc := ""
		if d.Description != nil {
			desc = "  " + *d.Description
		}
		fmt.Fprintf(cctx.Out, "%s %3d  %s%s\n", marker, d.ID, d.Name, desc)
	}
	return nil
}

type DoneCmd struct {
	Dmo  string `arg:"" help:"DMO id or name."`
	Date string `short:"D" help:"Date (YYYY-MM-DD), defaults to today."`
	Note string `short:"n" help:"Optional note."`
}

func (c *DoneCmd) Run(cctx *Context) error {
	return markCompletion(cctx, c.Dmo, c.Date, c.Note, true)
}

type MissCmd struct {
	Dmo  string `arg:"" help:"DMO id or name."`
	Date string `short:"D" help:"Date (YYYY-MM-DD), defaults to today."`
	Note string `short:"n" help:"Optional note."`
}

func (c *MissCmd) Run(cctx *Context) error {
	return markCompletion(cctx, c.Dmo, c.Date, c.Note, false)
}

func markCompletion(cctx *Context, ref, dateStr, note string, completed bool) error {
	dmo, err := resolveDmo(cctx, ref)
	if err != nil {
		return err
	}
	day, err := parseDateFlag(dateStr)
	if err != nil {
		return err
	}

	var notePtr *string
	if note != "" {
		notePtr = &note
	}

	if completed {
		_, err = cctx.Service.MarkComplete(cctx.Ctx, dmo.ID, day, notePtr)
	} else {
		_, err = cctx.Service.MarkIncomplete(cctx.Ctx, dmo.ID, day, notePtr)
	}
	if err != nil {
		return err
	}

	verb := "done"
	if !completed {
		verb = "missed"
	}
	fmt.Fprintf(cctx.Out, "%s: %s on %s\n", dmo.Name, verb, day)
	return nil
}

type TodayCmd struct {
	Date string `short:"D" help:"Date (YYYY-MM-DD), defaults to today."`
}

func (c *TodayCmd) Run(cctx *Context) error {
	day, err := parseDateFlag(c.Date)
	if err != nil {
		return err
	}

	report, err := cctx.Service.GetDailyReport(cctx.Ctx, day)
	if err != nil {
		return err
	}

	fmt.Fprintf(cctx.Out, "Report for %s\n", report.Date)
	if len(report.Dmos) == 0 {
		fmt.Fprintln(cctx.Out, "No active DMOs.")
		return nil
	}
	for _, status := range report.Dmos {
		mark := "[ ]"
		if status.Completed {
			mark = "[x]"
		}
		fmt.Fprintf(cctx.Out, "%s %s", mark, status.Dmo.Name)
		if status.Note != nil {
			fmt.Fprintf(cctx.Out, "  (%s)", *status.Note)
		}
		fmt.Fprintln(cctx.Out)
		for _, activity := range status.Activities {
			fmt.Fprintf(cctx.Out, "      - %s\n", activity)
		}
	}
	return nil
}

type MonthCmd struct {
	Dmo   string `arg:"" optional:"" help:"DMO id or name; all active DMOs when omitted."`
	Year  int    `short:"y" help:"Year, defaults to the current one."`
	Month int    `short:"m" help:"Month (1-12), defaults to the current one."`
}

func (c *MonthCmd) Run(cctx *Context) error {
	year, month := c.Year, c.Month
	today := core.Today()
	if year == 0 {
		year = today.Year()
	}
	if month == 0 {
		month = int(today.Month())
	}

	var reports []core.MonthlyReport
	if c.Dmo != "" {
		dmo, err := resolveDmo(cctx, c.Dmo)
		if err != nil {
			return err
		}
		report, err := cctx.Service.GetMonthlyReport(cctx.Ctx, dmo.ID, year, month)
		if err != nil {
			return err
		}
		reports = []core.MonthlyReport{report}
	} else {
		var err error
		reports, err = cctx.Service.GetMonthlyReports(cctx.Ctx, year, month)
		if err != nil {
			return err
		}
	}

	for _, report := range reports {
		s := report.Summary
		fmt.Fprintf(cctx.Out, "%s  %04d-%02d\n", report.Dmo.Name, report.Year, report.Month)
		fmt.Fprintf(cctx.Out, "  completed %d/%d days (%.1f%%)\n", s.CompletedDays, s.TotalDays, s.CompletionRate*100)
		fmt.Fprintf(cctx.Out, "  streak: current %d, longest %d\n", s.CurrentStreak, s.LongestStreak)
	}
	return nil
}

type SummaryCmd struct {
	Dmo   string `arg:"" help:"DMO id or name."`
	Start string `short:"s" required:"" help:"Range start (YYYY-MM-DD)."`
	End   string `short:"e" required:"" help:"Range end (YYYY-MM-DD)."`
}

func (c *SummaryCmd) Run(cctx *Context) error {
	dmo, err := resolveDmo(cctx, c.Dmo)
	if err != nil {
		return err
	}
	start, err := core.ParseDate(c.Start)
	if err != nil {
		return err
	}
	end, err := core.ParseDate(c.End)
	if err != nil {
		return err
	}

	summary, err := cctx.Service.GetDmoSummary(cctx.Ctx, dmo.ID, start, end)
	if err != nil {
		return err
	}

	fmt.Fprintf(cctx.Out, "%s  %s .. %s\n", summary.Dmo.Name, summary.StartDate, summary.EndDate)
	fmt.Fprintf(cctx.Out, "  completed %d/%d days (%.1f%%)\n", summary.CompletedDays, summary.TotalDays, summary.CompletionRate*100)
	fmt.Fprintf(cctx.Out, "  streak: current %d, longest %d\n", summary.CurrentStreak, summary.LongestStreak)
	return nil
}

type DeleteCmd struct {
	Dmo string `arg:"" help:"DMO id or name."`
}

func (c *DeleteCmd) Run(cctx *Context) error {
	dmo, err := resolveDmo(cctx, c.Dmo)
	if err != nil {
		return err
	}
	if err := cctx.Service.DeleteDmo(cctx.Ctx, dmo.ID); err != nil {
		return err
	}
	fmt.Fprintf(cctx.Out, "Deleted DMO %d: %s\n", dmo.ID, dmo.Name)
	return nil
}

type ActivityAddCmd struct {
	Dmo   string `arg:"" help:"DMO id or name."`
	Name  string `arg:"" help:"Activity name."`
	Order int    `short:"o" help:"Sort position." default:"0"`
}

func (c *ActivityAddCmd) Run(cctx *Context) error {
	dmo, err := resolveDmo(cctx, c.Dmo)
	if err != nil {
		return err
	}
	activity, err := cctx.Service.CreateActivity(cctx.Ctx, core.ActivityCreate{
		DmoID: dmo.ID,
		Name:  c.Name,
		Order: c.Order,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cctx.Out, "Added activity %d to %s: %s\n", activity.ID, dmo.Name, activity.Name)
	return nil
}

type ActivityListCmd struct {
	Dmo string `arg:"" help:"DMO id or name."`
}

func (c *ActivityListCmd) Run(cctx *Context) error {
	dmo, err := resolveDmo(cctx, c.Dmo)
	if err != nil {
		return err
	}
	activities, err := cctx.Service.ListActivities(cctx.Ctx, dmo.ID)
	if err != nil {
		return err
	}
	if len(activities) == 0 {
		fmt.Fprintf(cctx.Out, "%s has no activities.\n", dmo.Name)
		return nil
	}
	for _, a := range activities {
		fmt.Fprintf(cctx.Out, "%3d  %s\n", a.ID, a.Name)
	}
	return nil
}
