package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"rescuegrid/internal/auth"
	"rescuegrid/internal/blog"
	"rescuegrid/internal/config"
	"rescuegrid/internal/realtime"
	"rescuegrid/internal/rescue"
)

// DBPinger is the slice of the store the health endpoint needs.
type DBPinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	Config   *config.Config
	logger   *slog.Logger
	validate *validator.Validate

	gate    *auth.Gate
	jwt     *auth.JWTManager
	otp     *auth.OTPService
	users   auth.UserStore
	reports *rescue.Service
	blogs   *blog.Service

	registry *realtime.Registry
	db       DBPinger
}

func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	gate *auth.Gate,
	jwtManager *auth.JWTManager,
	otp *auth.OTPService,
	users auth.UserStore,
	reports *rescue.Service,
	blogs *blog.Service,
	registry *realtime.Registry,
	db DBPinger,
) *Server {
	return &Server{
		Config:   cfg,
		logger:   logger,
		validate: validator.New(),
		gate:     gate,
		jwt:      jwtManager,
		otp:      otp,
		users:    users,
		reports:  reports,
		blogs:    blogs,
		registry: registry,
		db:       db,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.banner())
	r.Get("/health/db", s.healthDB())
	r.Get("/ws", s.wsHandler())

	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.Config.UploadDir)))
	r.Get("/uploads/*", fileServer.ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.register())
		r.Post("/login", s.login())
		r.Post("/request-otp", s.requestOTP())
		r.Post("/verify-otp", s.verifyOTP())

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/me", s.me())
			r.Put("/me", s.updateMe())
		})
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/nearby", s.nearbyReports())

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.createReport())
			r.Get("/{id}", s.getReport())
			r.Post("/{id}/respond", s.respondToReport())
			r.Post("/{id}/claim", s.claimReport())
			r.Post("/{id}/status", s.updateReportStatus())
		})
	})

	r.Route("/blogs", func(r chi.Router) {
		r.Get("/", s.listBlogs())

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.createBlog())
			r.Get("/mine", s.myBlogs())
		})
	})

	return r
}

func (s *Server) banner() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Animal Rescue API — running")); err != nil {
			s.logger.Error("error writing response", "error", err)
		}
	}
}

func (s *Server) healthDB() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(r.Context()); err != nil {
			s.logger.Error("db health check failed", "error", err)
			_ = writeError(w, http.StatusInternalServerError, "db error")
			return
		}
		_ = writeJSON(w, http.StatusOK, map[string]string{"db": time.Now().UTC().Format(time.RFC3339)})
	}
}

func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:    net.JoinHostPort(s.Config.APIServerHost, s.Config.APIServerPort),
		Handler: s.Router(),
	}

	go func() {
		s.logger.Info("API server is running", "port", s.Config.APIServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server failed to listen and serve", "error", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("API server failed to shutdown", "error", err)
		}
		s.registry.Shutdown()
	}()

	wg.Wait()
	return nil
}
