package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"dmo/internal/core"
	"dmo/internal/memstore"
	"dmo/internal/services"
)

func newTestContext(t *testing.T) (*Context, *bytes.Buffer) {
	t.Helper()
	store := memstore.New()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}
	var out bytes.Buffer
	return &Context{
		Ctx:     context.Background(),
		Service: services.NewDmoService(store, nil, nil),
		Out:     &out,
	}, &out
}

func TestCreateAndListCommands(t *testing.T) {
	cctx, out := newTestContext(t)

	create := &CreateCmd{
		Name:        "Morning Routine",
		Description: "before work",
		Activity:    []string{"make bed", "stretch"},
	}
	if err := create.Run(cctx); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(out.String(), "Morning Routine") {
		t.Fatalf("create output: %q", out.String())
	}
	if !strings.Contains(out.String(), "stretch") {
		t.Fatalf("create should report added activities: %q", out.String())
	}

	activities, err := cctx.Service.ListActivities(cctx.Ctx, 1)
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	if len(activities) != 2 || activities[0].Name != "make bed" || activities[1].Name != "stretch" {
		t.Fatalf("activities = %+v", activities)
	}

	out.Reset()
	list := &ListCmd{}
	if err := list.Run(cctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out.String(), "Morning Routine") || !strings.Contains(out.String(), "before work") {
		t.Fatalf("list output: %q", out.String())
	}
}

func TestResolveDmoByIDAndName(t *testing.T) {
	cctx, _ := newTestContext(t)
	created, err := cctx.Service.CreateDmo(cctx.Ctx, core.DmoCreate{Name: "Reading"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	byID, err := resolveDmo(cctx, "1")
	if err != nil || byID.ID != created.ID {
		t.Fatalf("resolve by id: %+v %v", byID, err)
	}

	byName, err := resolveDmo(cctx, "reading")
	if err != nil || byName.ID != created.ID {
		t.Fatalf("resolve by name should be case-insensitive: %+v %v", byName, err)
	}

	if _, err := resolveDmo(cctx, "nope"); err == nil {
		t.Fatal("unknown reference should fail")
	}
}

func TestDoneMissAndToday(t *testing.T) {
	cctx, out := newTestContext(t)
	if _, err := cctx.Service.CreateDmo(cctx.Ctx, core.DmoCreate{Name: "Gym"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	done := &DoneCmd{Dmo: "Gym", Date: "2026-02-10", Note: "leg day"}
	if err := done.Run(cctx); err != nil {
		t.Fatalf("done: %v", err)
	}
	if !strings.Contains(out.String(), "done") {
		t.Fatalf("done output: %q", out.String())
	}

	out.Reset()
	today := &TodayCmd{Date: "2026-02-10"}
	if err := today.Run(cctx); err != nil {
		t.Fatalf("today: %v", err)
	}
	if !strings.Contains(out.String(), "[x] Gym") || !strings.Contains(out.String(), "leg day") {
		t.Fatalf("today output: %q", out.String())
	}

	out.Reset()
	miss := &MissCmd{Dmo: "Gym", Date: "2026-02-10"}
	if err := miss.Run(cctx); err != nil {
		t.Fatalf("miss: %v", err)
	}

	out.Reset()
	if err := today.Run(cctx); err != nil {
		t.Fatalf("today after miss: %v", err)
	}
	if !strings.Contains(out.String(), "[ ] Gym") {
		t.Fatalf("today output after miss: %q", out.String())
	}
}

func TestMonthCommand(t *testing.T) {
	cctx, out := newTestContext(t)
	dmo, _ := cctx.Service.CreateDmo(cctx.Ctx, core.DmoCreate{Name: "Writing"})
	for day := 1; day <= 5; day++ {
		if _, err := cctx.Service.MarkComplete(cctx.Ctx, dmo.ID, core.NewDate(2026, 2, day), nil); err != nil {
			t.Fatalf("mark day %d: %v", day, err)
		}
	}

	month := &MonthCmd{Dmo: "Writing", Year: 2026, Month: 2}
	if err := month.Run(cctx); err != nil {
		t.Fatalf("month: %v", err)
	}
	output := out.String()
	if !strings.Contains(output, "completed 5/28 days") {
		t.Fatalf("month output: %q", output)
	}
	if !strings.Contains(output, "longest 5") {
		t.Fatalf("month output missing streak: %q", output)
	}
}

func TestSummaryCommand(t *testing.T) {
	cctx, out := newTestContext(t)
	dmo, _ := cctx.Service.CreateDmo(cctx.Ctx, core.DmoCreate{Name: "Spanish"})
	for day := 3; day <= 6; day++ {
		if _, err := cctx.Service.MarkComplete(cctx.Ctx, dmo.ID, core.NewDate(2026, 3, day), nil); err != nil {
			t.Fatalf("mark: %v", err)
		}
	}

	summary := &SummaryCmd{Dmo: "Spanish", Start: "2026-03-01", End: "2026-03-10"}
	if err := summary.Run(cctx); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(out.String(), "completed 4/10 days") {
		t.Fatalf("summary output: %q", out.String())
	}

	bad := &SummaryCmd{Dmo: "Spanish", Start: "2026-03-10", End: "2026-03-01"}
	if err := bad.Run(cctx); err == nil {
		t.Fatal("reversed range should fail")
	}
}

func TestActivityCommands(t *testing.T) {
	cctx, out := newTestContext(t)
	if _, err := cctx.Service.CreateDmo(cctx.Ctx, core.DmoCreate{Name: "Routine"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	add := &ActivityAddCmd{Dmo: "Routine", Name: "make bed"}
	if err := add.Run(cctx); err != nil {
		t.Fatalf("activity add: %v", err)
	}

	out.Reset()
	list := &ActivityListCmd{Dmo: "Routine"}
	if err := list.Run(cctx); err != nil {
		t.Fatalf("activity list: %v", err)
	}
	if !strings.Contains(out.String(), "make bed") {
		t.Fatalf("activity list output: %q", out.String())
	}
}
