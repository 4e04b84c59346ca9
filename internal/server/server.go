package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/quickkart/authserver/config"
	"github.com/quickkart/authserver/internal/avatars"
	"github.com/quickkart/authserver/internal/db"
	"github.com/quickkart/authserver/internal/events"
	"github.com/quickkart/authserver/internal/handlers"
	"github.com/quickkart/authserver/internal/lockout"
	"github.com/quickkart/authserver/internal/services"
	"github.com/quickkart/authserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *events.Events
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger := slog.Default()

	ev, err := newEvents(ctx, cfg.Events, logger)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	mirror, err := newAvatarMirror(ctx, cfg.Avatars, logger)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if err := mirror.EnsureBucket(ctx); err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	adminRepo := store.NewAdminRepository(dbConn)
	userRepo := store.NewUserRepository(dbConn)

	tracker := lockout.New()
	tokens := services.NewTokenService(jwtSecret)
	authenticator := services.NewAuthenticator(adminRepo, tracker, ev, logger)
	identity := services.NewIdentityService(adminRepo, userRepo)
	oauth := services.NewOAuthService(
		cfg.Google,
		cfg.Auth.FrontendURL,
		userRepo,
		tokens,
		ev,
		mirror,
		logger,
	)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	handlers.AuthRouter(router, handlers.NewAuthHandler(
		adminRepo, authenticator, identity, tokens, cfg.Auth.AdminCreateSecret))
	handlers.OAuthRouter(router, handlers.NewOAuthHandler(oauth))
	handlers.UserRouter(router, handlers.NewUserHandler(identity, mirror))

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     ev,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.events != nil {
		_ = s.events.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

func newEvents(ctx context.Context, cfg config.EventsConfig, logger *slog.Logger) (*events.Events, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		backend, err := events.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return events.New(backend, logger), nil
	case "pubsub":
		backend, err := events.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return events.New(backend, logger), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

func newAvatarMirror(ctx context.Context, cfg config.AvatarsConfig, logger *slog.Logger) (*avatars.Mirror, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "minio":
		backend, err := avatars.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return avatars.NewMirror(backend, logger), nil
	case "gcs":
		backend, err := avatars.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return avatars.NewMirror(backend, logger), nil
	default:
		return nil, fmt.Errorf("unknown avatar storage backend %q", cfg.Backend)
	}
}
