package http

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"busticket/internal/core"
	appweb "busticket/web"
)

var templateFuncs = template.FuncMap{
	"money": core.FormatMoney,
	"percent": func(d decimal.Decimal) string {
		return d.StringFixed(1) + "%"
	},
	"barWidth": barWidth,
	"subjectOr": func(s, fallback string) string {
		if strings.TrimSpace(s) == "" {
			return fallback
		}
		return s
	},
	"isNeg": func(d decimal.Decimal) bool { return d.IsNegative() },
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

// barWidth scales v against peak as a whole percentage for the trend bars.
// Non-zero values stay visible at 2%.
func barWidth(v, peak decimal.Decimal) int {
	if !peak.IsPositive() || !v.IsPositive() {
		return 0
	}
	w := int(v.Mul(decimal.NewFromInt(100)).Div(peak).Round(0).IntPart())
	if w < 2 {
		w = 2
	}
	if w > 100 {
		w = 100
	}
	return w
}

// Flash is a one-line status shown above a form.
type Flash struct {
	Kind    string
	Message string
}

// pageData is the shared envelope every full page renders with.
type pageData struct {
	Title  string
	Active string
	User   core.User
	Flash  *Flash
	Data   any
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, page pageData) {
	if user, ok := s.ledger.CurrentUser(); ok {
		page.User = user
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, page); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// flashFromQuery restores a message carried across a redirect.
func flashFromQuery(r *http.Request) *Flash {
	q := r.URL.Query()
	msg := sanitizeInput(q.Get("msg"))
	if msg == "" {
		return nil
	}
	kind := q.Get("kind")
	if kind != "error" {
		kind = "success"
	}
	return &Flash{Kind: kind, Message: msg}
}
