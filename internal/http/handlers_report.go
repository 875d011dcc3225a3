package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"dmo/internal/core"
)

func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	day, err := queryDate(r, "date", core.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}

	if cached, ok := s.dailyCache.Get(day.String()); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	report, err := s.service.GetDailyReport(r.Context(), day)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.dailyCache.Set(day.String(), report)
	writeJSON(w, http.StatusOK, report)
}

// handleMonthlyReport serves one report when dmo_id is given, otherwise one
// per active DMO.
func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	year, month, err := queryYearMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if v := strings.TrimSpace(r.URL.Query().Get("dmo_id")); v != "" {
		dmoID, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil || dmoID < 1 {
			writeError(w, r, fmt.Errorf("%w: invalid dmo_id %q", core.ErrValidation, v))
			return
		}

		key := monthlyCacheKey(dmoID, year, month)
		if cached, ok := s.monthlyCache.Get(key); ok {
			writeJSON(w, http.StatusOK, []core.MonthlyReport{cached})
			return
		}

		report, err := s.service.GetMonthlyReport(r.Context(), dmoID, year, month)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.monthlyCache.Set(key, report)
		writeJSON(w, http.StatusOK, []core.MonthlyReport{report})
		return
	}

	reports, err := s.service.GetMonthlyReports(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, report := range reports {
		s.monthlyCache.Set(monthlyCacheKey(report.Dmo.ID, year, month), report)
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleDmoSummary(w http.ResponseWriter, r *http.Request) {
	dmoID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	start, err := requiredQueryDate(r, "start")
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := requiredQueryDate(r, "end")
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := fmt.Sprintf("dmo:%d:summary:%s:%s", dmoID, start, end)
	if cached, ok := s.summaryCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	summary, err := s.service.GetDmoSummary(r.Context(), dmoID, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.summaryCache.Set(key, summary)
	writeJSON(w, http.StatusOK, summary)
}

func monthlyCacheKey(dmoID int64, year, month int) string {
	return fmt.Sprintf("dmo:%d:month:%04d-%02d", dmoID, year, month)
}
