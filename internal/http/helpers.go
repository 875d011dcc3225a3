package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dmo/internal/core"
)

// pathID parses the named path segment as a numeric identifier.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: invalid %s %q", core.ErrValidation, name, raw)
	}
	return id, nil
}

// pathDate parses the named path segment as an ISO date.
func pathDate(r *http.Request, name string) (core.Date, error) {
	raw := r.PathValue(name)
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: invalid %s %q", core.ErrValidation, name, raw)
	}
	return d, nil
}

// queryDate parses an ISO date query parameter, falling back to def when the
// parameter is absent.
func queryDate(r *http.Request, name string, def core.Date) (core.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: invalid %s %q", core.ErrValidation, name, raw)
	}
	return d, nil
}

// requiredQueryDate parses an ISO date query parameter that must be present.
func requiredQueryDate(r *http.Request, name string) (core.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return core.Date{}, fmt.Errorf("%w: missing %s", core.ErrValidation, name)
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: invalid %s %q", core.ErrValidation, name, raw)
	}
	return d, nil
}

// queryYearMonth extracts year and month query parameters, defaulting to the
// current month.
func queryYearMonth(r *http.Request) (year, month int, err error) {
	now := time.Now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		y, perr := strconv.Atoi(v)
		if perr != nil || y < 1 {
			return 0, 0, fmt.Errorf("%w: invalid year %q", core.ErrValidation, v)
		}
		year = y
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		m, perr := strconv.Atoi(v)
		if perr != nil || m < 1 || m > 12 {
			return 0, 0, fmt.Errorf("%w: invalid month %q", core.ErrValidation, v)
		}
		month = m
	}

	return year, month, nil
}

func queryBool(r *http.Request, name string) bool {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
