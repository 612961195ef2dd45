package http

import (
	"net/http"
	"strings"
)

// requireLogin sends signed-out visitors to the login page. JSON routes get
// a 401 instead.
func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.ledger.CurrentUser(); !ok {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.ledger.CurrentUser(); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", pageData{Title: "Welcome Back", Flash: flashFromQuery(r)})
}

// handleLogin accepts any email and password. There is no credential check.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.logger.ErrorContext(r.Context(), "Parse form error", "error", err)
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	email := sanitizeInput(r.Form.Get("email"))
	if _, err := s.ledger.Login(r.Context(), email); err != nil {
		s.logger.ErrorContext(r.Context(), "Login failed", "error", err)
		http.Error(w, "could not sign in", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Logout(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "Logout failed", "error", err)
		http.Error(w, "could not sign out", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
