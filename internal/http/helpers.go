package http

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"busticket/internal/core"
)

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// monthParam reads ?month=YYYY-MM, falling back to the current month.
func monthParam(r *http.Request, now time.Time) string {
	if m := strings.TrimSpace(r.URL.Query().Get("month")); core.IsMonthKey(m) {
		return m
	}
	return core.MonthKey(now)
}

// dateValue returns the submitted YYYY-MM-DD date, or today when it is
// empty or malformed.
func dateValue(v string, now time.Time) string {
	v = strings.TrimSpace(v)
	if _, err := time.Parse(core.DateLayout, v); err == nil {
		return v
	}
	return core.DateKey(now)
}

// redirectWithFlash sends a 303 to path carrying a status message.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, path, kind, msg string) {
	q := url.Values{}
	q.Set("kind", kind)
	q.Set("msg", msg)
	http.Redirect(w, r, path+"?"+q.Encode(), http.StatusSeeOther)
}
