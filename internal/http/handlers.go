package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gastos/internal/auth"
	"gastos/internal/core"
	applog "gastos/internal/log"
)

// pinger is implemented by stores with a cheaper probe than a full load.
type pinger interface {
	Ping(ctx context.Context) error
}

type indexPage struct {
	Session    auth.Session
	LoginError string

	Today      string
	Input      core.ExpenseInput
	Categories []core.Category
	Payers     []core.Payer
	Payments   []core.PaymentMethod

	// SummaryQuery is the initial dashboard request.
	SummaryQuery string
	Backend      string
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.probeStore(ctx); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Store readiness probe failed", applog.FieldError, err)
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) probeStore(ctx context.Context) error {
	if s.probe == nil {
		return errors.New("no store configured")
	}
	if p, ok := s.probe.(pinger); ok {
		return p.Ping(ctx)
	}
	_, err := s.probe.Load(ctx)
	return err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, r, http.StatusOK, "")
}

func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, status int, loginError string) {
	logger := applog.FromContext(r.Context())
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	day := today(s.now(), s.location).String()
	page := indexPage{
		Session:      s.gate.Session(r),
		LoginError:   loginError,
		Today:        day,
		Input:        core.ExpenseInput{Date: day},
		Categories:   core.Categories(),
		Payers:       core.Payers(),
		Payments:     core.PaymentMethods(),
		SummaryQuery: ParseSummaryParams(nil).Query(),
	}
	if s.recorder != nil {
		page.Backend = s.recorder.Backend()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, "index.html", page); err != nil {
		logger.ErrorContext(r.Context(), "Index template execution failed", applog.FieldError, err, "template", "index.html")
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderIndex(w, r, http.StatusBadRequest, "Solicitud inválida.")
		return
	}
	if err := s.gate.Login(w, r, r.PostForm.Get("password")); err != nil {
		msg := "No se pudo iniciar sesión."
		if errors.Is(err, auth.ErrWrongPassword) {
			msg = "Contraseña incorrecta."
		}
		s.renderIndex(w, r, http.StatusUnauthorized, msg)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.gate.Logout(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
