package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"nutrilog/internal/core"
	"nutrilog/internal/log"
	"nutrilog/internal/metrics"
	"nutrilog/internal/middleware/ratelimit"
	"nutrilog/internal/middleware/security"
	"nutrilog/internal/middleware/trace"
	appweb "nutrilog/web"
)

// MealService is the write and read surface of the meal log.
type MealService interface {
	CreateMeal(ctx context.Context, e core.MealEntry) (core.MealEntry, error)
	UpdateMeal(ctx context.Context, id int64, p core.MealPatch) (core.MealEntry, error)
	DeleteMeal(ctx context.Context, id int64) error
	GetMeal(ctx context.Context, id int64) (core.MealEntry, error)
	ListMeals(ctx context.Context, f core.MealFilter) ([]core.MealEntry, error)

	ListComponents(ctx context.Context, mealID int64) ([]core.Component, error)
	CreateComponent(ctx context.Context, c core.Component) (core.Component, error)
	DeleteComponent(ctx context.Context, mealID, componentID int64) error
}

type SummaryService interface {
	Daily(ctx context.Context, date core.Date) (core.DailySummary, error)
	Weekly(ctx context.Context, start core.Date) (core.WeeklySummary, error)
}

// Pinger is checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tune the server. Zero values pick defaults.
type Options struct {
	Logger             *log.Logger
	RateLimitPerMinute int
	Location           *time.Location
	Ready              Pinger
	// TrustedProxies are extra CIDRs whose forwarding headers name the client.
	TrustedProxies []string
}

type Server struct {
	http.Server
	templates *template.Template
	meals     MealService
	summaries SummaryService
	ready     Pinger
	location  *time.Location
	now       func() time.Time
	logger    *log.Logger
	started   time.Time

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes, templates and the middleware chain,
// returning a ready-to-run http.Server.
func NewServer(addr string, meals MealService, summaries SummaryService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.FromContext(context.Background()).WithComponent(log.ComponentHTTP)
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	s := &Server{
		meals:            meals,
		summaries:        summaries,
		ready:            opts.Ready,
		location:         opts.Location,
		now:              time.Now,
		logger:           opts.Logger,
		started:          time.Now(),
		securityDetector: security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
	}

	for _, cidr := range opts.TrustedProxies {
		if err := s.securityDetector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/meals", s.handleListMeals)
	mux.HandleFunc("POST /api/meals", s.handleCreateMeal)
	mux.HandleFunc("GET /api/meals/{id}", s.handleGetMeal)
	mux.HandleFunc("PUT /api/meals/{id}", s.handleUpdateMeal)
	mux.HandleFunc("DELETE /api/meals/{id}", s.handleDeleteMeal)

	mux.HandleFunc("GET /api/meals/{id}/components", s.handleListComponents)
	mux.HandleFunc("POST /api/meals/{id}/components", s.handleCreateComponent)
	mux.HandleFunc("DELETE /api/meals/{id}/components/{cid}", s.handleDeleteComponent)

	mux.HandleFunc("GET /api/summary/{date}", s.handleDailySummary)
	mux.HandleFunc("GET /api/summary/week/{date}", s.handleWeeklySummary)
}

// middleware wraps the mux, outermost first: tracing, suspicious request
// detection, security headers, CORS for /api, rate limiting, metrics and
// the request logger.
func (s *Server) middleware(next http.Handler) http.Handler {
	traceMiddleware := trace.NewMiddleware(s.securityDetector.ExtractClientIP, s.logger)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	cors := security.CORS(http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions)
	limit := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		metrics.RecordRateLimited()
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	})

	requestID := log.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})

	h := log.Middleware(s.logger)(requestID(next))
	h = metrics.InstrumentHandler(h)
	h = limit(h)
	h = apiOnly(cors, h)
	h = headers.Middleware(h)
	h = s.securityDetector.Middleware(h)
	return traceMiddleware.Middleware(h)
}

// apiOnly applies mw to requests under /api/ and passes the rest through.
func apiOnly(mw func(http.Handler) http.Handler, next http.Handler) http.Handler {
	wrapped := mw(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			wrapped.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// today is the current calendar day in the configured zone.
func (s *Server) today() core.Date {
	return core.Today(s.now(), s.location)
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
