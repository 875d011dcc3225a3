package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"dmo/internal/core"
	"dmo/internal/memstore"
	"dmo/internal/services"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	store := memstore.New()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}
	svc := services.NewDmoService(store, nil, nil)
	s := NewServer(":0", svc, nil)
	ts := httptest.NewServer(s.Server.Handler)
	t.Cleanup(func() {
		ts.Close()
		s.Shutdown(context.Background())
	})
	return s, ts
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func createDmo(t *testing.T, base, name string) core.Dmo {
	t.Helper()
	resp := doJSON(t, http.MethodPost, base+"/dmos", map[string]any{"name": name})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create dmo: status %d", resp.StatusCode)
	}
	return decode[core.Dmo](t, resp)
}

func TestHealthEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: status %d", path, resp.StatusCode)
		}
	}
}

func TestDmoCRUD(t *testing.T) {
	_, ts := newTestServer(t)

	dmo := createDmo(t, ts.URL, "Morning Routine")
	if dmo.ID == 0 || !dmo.Active {
		t.Fatalf("unexpected dmo: %+v", dmo)
	}

	// Duplicate name is a 400.
	resp := doJSON(t, http.MethodPost, ts.URL+"/dmos", map[string]any{"name": "Morning Routine"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate create: status %d", resp.StatusCode)
	}

	// Unknown id is a 404.
	resp, _ = http.Get(ts.URL + "/dmos/999")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get missing: status %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPatch, fmt.Sprintf("%s/dmos/%d", ts.URL, dmo.ID), map[string]any{"description": "wake early"})
	updated := decode[core.Dmo](t, resp)
	if updated.Description == nil || *updated.Description != "wake early" {
		t.Fatalf("patch not applied: %+v", updated)
	}

	resp = doJSON(t, http.MethodPost, fmt.Sprintf("%s/dmos/%d/deactivate", ts.URL, dmo.ID), nil)
	if got := decode[core.Dmo](t, resp); got.Active {
		t.Fatalf("deactivate failed: %+v", got)
	}

	resp = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/dmos/%d", ts.URL, dmo.ID), nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}
}

func TestActivityEndpoints(t *testing.T) {
	_, ts := newTestServer(t)
	dmo := createDmo(t, ts.URL, "Gym")

	var ids []int64
	for i, name := range []string{"warmup", "lift", "cooldown"} {
		resp := doJSON(t, http.MethodPost, fmt.Sprintf("%s/dmos/%d/activities", ts.URL, dmo.ID), map[string]any{"name": name, "order": i})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create activity: status %d", resp.StatusCode)
		}
		ids = append(ids, decode[core.Activity](t, resp).ID)
	}

	// Reverse the order through the reorder endpoint.
	resp := doJSON(t, http.MethodPost, fmt.Sprintf("%s/dmos/%d/activities/reorder", ts.URL, dmo.ID),
		map[string]any{"activity_ids": []int64{ids[2], ids[1], ids[0]}})
	reordered := decode[[]core.Activity](t, resp)
	if reordered[0].Name != "cooldown" || reordered[2].Name != "warmup" {
		t.Fatalf("unexpected order: %+v", reordered)
	}

	// Listing activities of an unknown DMO is a 404.
	resp, _ = http.Get(ts.URL + "/dmos/999/activities")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("list for missing dmo: status %d", resp.StatusCode)
	}
}

func TestCompletionEndpoints(t *testing.T) {
	_, ts := newTestServer(t)
	dmo := createDmo(t, ts.URL, "Reading")

	url := fmt.Sprintf("%s/dmos/%d/completions", ts.URL, dmo.ID)
	resp := doJSON(t, http.MethodPost, url, map[string]any{"date": "2026-02-10", "completed": true, "note": "ch. 4"})
	rec := decode[core.Completion](t, resp)
	if !rec.Completed || rec.Note == nil || *rec.Note != "ch. 4" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	// Same day again keeps the id.
	resp = doJSON(t, http.MethodPost, url, map[string]any{"date": "2026-02-10", "completed": false})
	rec2 := decode[core.Completion](t, resp)
	if rec2.ID != rec.ID || rec2.Completed || rec2.Note != nil {
		t.Fatalf("upsert mismatch: %+v vs %+v", rec, rec2)
	}

	// Absent record is a 404.
	resp, _ = http.Get(url + "/2026-02-11")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("absent completion: status %d", resp.StatusCode)
	}

	// Missing date is a 400.
	resp = doJSON(t, http.MethodPost, url, map[string]any{"completed": true})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing date: status %d", resp.StatusCode)
	}

	// Reversed range is a 400.
	resp, _ = http.Get(url + "?start=2026-02-20&end=2026-02-01")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("reversed range: status %d", resp.StatusCode)
	}
}

func TestMonthlyReportEndpointAndInvalidation(t *testing.T) {
	_, ts := newTestServer(t)
	dmo := createDmo(t, ts.URL, "Writing")

	completionsURL := fmt.Sprintf("%s/dmos/%d/completions", ts.URL, dmo.ID)
	for day := 1; day <= 3; day++ {
		resp := doJSON(t, http.MethodPost, completionsURL,
			map[string]any{"date": fmt.Sprintf("2026-02-%02d", day), "completed": true})
		resp.Body.Close()
	}

	reportURL := fmt.Sprintf("%s/reports/monthly?year=2026&month=2&dmo_id=%d", ts.URL, dmo.ID)
	resp, _ := http.Get(reportURL)
	reports := decode[[]core.MonthlyReport](t, resp)
	if len(reports) != 1 || reports[0].Summary.CompletedDays != 3 {
		t.Fatalf("unexpected report: %+v", reports)
	}

	// A new completion must show up in the next read despite caching.
	resp = doJSON(t, http.MethodPost, completionsURL, map[string]any{"date": "2026-02-04", "completed": true})
	resp.Body.Close()

	resp, _ = http.Get(reportURL)
	reports = decode[[]core.MonthlyReport](t, resp)
	if reports[0].Summary.CompletedDays != 4 {
		t.Fatalf("cache not invalidated, completed days = %d", reports[0].Summary.CompletedDays)
	}
	if reports[0].Summary.LongestStreak != 4 {
		t.Fatalf("longest streak = %d, want 4", reports[0].Summary.LongestStreak)
	}
}

func TestDailyReportEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	dmo := createDmo(t, ts.URL, "Meditation")

	resp := doJSON(t, http.MethodPost, fmt.Sprintf("%s/dmos/%d/completions", ts.URL, dmo.ID),
		map[string]any{"date": "2026-02-14", "completed": true})
	resp.Body.Close()

	resp, _ = http.Get(ts.URL + "/reports/daily?date=2026-02-14")
	report := decode[core.DailyReport](t, resp)
	if len(report.Dmos) != 1 || !report.Dmos[0].Completed {
		t.Fatalf("unexpected daily report: %+v", report)
	}

	resp, _ = http.Get(ts.URL + "/reports/daily?date=not-a-date")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid date: status %d", resp.StatusCode)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	dmo := createDmo(t, ts.URL, "Spanish")

	for day := 5; day <= 8; day++ {
		resp := doJSON(t, http.MethodPost, fmt.Sprintf("%s/dmos/%d/completions", ts.URL, dmo.ID),
			map[string]any{"date": fmt.Sprintf("2026-03-%02d", day), "completed": true})
		resp.Body.Close()
	}

	url := fmt.Sprintf("%s/dmos/%d/summary?start=2026-03-01&end=2026-03-10", ts.URL, dmo.ID)
	resp, _ := http.Get(url)
	summary := decode[core.DmoSummary](t, resp)
	if summary.TotalDays != 10 || summary.CompletedDays != 4 || summary.LongestStreak != 4 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < requestsPerMinute; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("request over the limit should be rejected")
	}
	if !rl.allow("10.0.0.2") {
		t.Fatal("other clients must not be affected")
	}
}
