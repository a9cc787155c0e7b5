package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"gastos/internal/auth"
	applog "gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/middleware/ratelimit"
	"gastos/internal/middleware/security"
	"gastos/internal/middleware/trace"
	"gastos/internal/services"
	"gastos/internal/store"
	appweb "gastos/web"
)

// Deps are the collaborators the server renders and records through.
type Deps struct {
	Recorder *services.Recorder
	Reporter *services.Reporter
	// Probe is checked by /readyz. It is usually the same store the
	// recorder writes to.
	Probe store.Loader
	Gate  *auth.Gate

	RateLimit      ratelimit.Config
	TrustedProxies []string
	// Location decides what "today" is for the default expense date.
	Location *time.Location
	Now      func() time.Time
}

type Server struct {
	http.Server
	templates  *template.Template
	recorder   *services.Recorder
	reporter   *services.Reporter
	probe      store.Loader
	gate       *auth.Gate
	limiter    *ratelimit.Limiter
	ipResolver *security.IPResolver
	logger     *slog.Logger

	location *time.Location
	now      func() time.Time
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = applog.WithComponent(logger, applog.ComponentHTTP)
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Gate == nil {
		deps.Gate = auth.NewGate("", "", false, logger)
	}

	s := &Server{
		recorder:   deps.Recorder,
		reporter:   deps.Reporter,
		probe:      deps.Probe,
		gate:       deps.Gate,
		limiter:    ratelimit.NewLimiter(deps.RateLimit),
		ipResolver: security.NewIPResolver(),
		logger:     logger,
		location:   deps.Location,
		now:        deps.Now,
		started:    deps.Now(),
	}
	for _, cidr := range deps.TrustedProxies {
		if err := s.ipResolver.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", "error", err)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		s.handle(mux, "GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	private := func(h http.HandlerFunc) http.Handler {
		return security.NoStore(s.gate.Require(h, s.denied))
	}

	s.handle(mux, "GET /{$}", security.NoStore(http.HandlerFunc(s.handleIndex)))
	s.handle(mux, "POST /login", http.HandlerFunc(s.handleLogin))
	s.handle(mux, "POST /logout", http.HandlerFunc(s.handleLogout))
	s.handle(mux, "POST /expenses", private(s.handleCreateExpense))
	s.handle(mux, "GET /ui/summary", private(s.handleSummary))
	s.handle(mux, "GET /healthz", http.HandlerFunc(s.handleHealth))
	s.handle(mux, "GET /readyz", http.HandlerFunc(s.handleReady))
	s.handle(mux, "GET /metrics", metrics.Handler())

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.ipResolver.ClientIP, logger)
	limit := s.limiter.Middleware(s.ipResolver.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.ipResolver.ClientIP(r),
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Demasiadas solicitudes. Intenta de nuevo en un minuto.").Write(w)
	})

	var handler http.Handler = mux
	handler = limit(handler)
	handler = applog.Middleware(logger, trace.GetRequestID)(handler)
	handler = headers.Middleware(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// handle registers h and reports the pattern to the tracing middleware so
// request metrics are labelled by route rather than by raw path.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.Handler) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		trace.SetRoute(r.Context(), pattern)
		h.ServeHTTP(w, r)
	}))
}

// denied answers requests without a session: htmx gets a redirect header,
// plain requests a redirect.
func (s *Server) denied(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		UnauthorizedError().Write(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
