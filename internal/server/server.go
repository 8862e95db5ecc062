package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/traderedge/apiserver/config"
	"github.com/traderedge/apiserver/internal/db"
	"github.com/traderedge/apiserver/internal/events"
	"github.com/traderedge/apiserver/internal/handlers"
	"github.com/traderedge/apiserver/internal/logging"
	"github.com/traderedge/apiserver/internal/mq"
	"github.com/traderedge/apiserver/internal/services"
	"github.com/traderedge/apiserver/internal/storage"
	"github.com/traderedge/apiserver/internal/store"
)

// Server wraps the HTTP server and its owned resources.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     *mq.MQ
	logger     *zap.Logger
}

// New constructs a Server with all routes and dependencies wired.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	broker, err := newBroker(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	attachments, err := newAttachmentStorage(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		if broker != nil {
			_ = broker.Close()
		}
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	tradeRepo := store.NewTradeRepository(dbConn)
	accountRepo := store.NewAccountRepository(dbConn)
	riskPlanRepo := store.NewRiskPlanRepository(dbConn)

	userService := services.NewUserService(userRepo)
	tradeService := services.NewTradeService(tradeRepo)
	accountService := services.NewAccountService(accountRepo)
	riskPlanService := services.NewRiskPlanService(riskPlanRepo)

	publisher := events.NewPublisher(broker, cfg.Events, logger)

	authHandler := handlers.NewAuthHandler(userService, publisher, logger, jwtSecret, cfg.Auth.TokenTTL)
	tradeHandler := handlers.NewTradeHandler(tradeService, attachments, publisher, logger)
	accountHandler := handlers.NewAccountHandler(accountService, logger)
	userPlanHandler := handlers.NewUserPlanHandler(userService, logger)
	riskPlanHandler := handlers.NewRiskPlanHandler(riskPlanService, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		recovererJSON(logger),
		middleware.Logger,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin"},
			ExposedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         3600,
		}),
	)

	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, authHandler)
		})

		// Everything below requires a valid token carrying the user's
		// current session id.
		r.Group(func(r chi.Router) {
			r.Use(authHandler.RequireAuth, authHandler.RequireSession)
			r.Route("/trades", func(r chi.Router) {
				handlers.TradeRouter(r, tradeHandler)
			})
			r.Route("/accounts", func(r chi.Router) {
				handlers.AccountRouter(r, accountHandler)
			})
			r.Route("/user", func(r chi.Router) {
				handlers.UserPlanRouter(r, userPlanHandler)
			})
			r.Route("/risk-plan", func(r chi.Router) {
				handlers.RiskPlanRouter(r, riskPlanHandler)
			})
		})
	})

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
		broker:     broker,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown and releases owned resources.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.broker != nil {
		_ = s.broker.Close()
	}
	_ = s.logger.Sync()
	return s.httpServer.Close()
}

func newBroker(ctx context.Context, cfg config.MQConfig) (*mq.MQ, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "rabbitmq":
		backend, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return mq.New(backend), nil
	case "pubsub":
		backend, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return mq.New(backend), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

func newAttachmentStorage(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStorage, error) {
	var backend storage.ObjectStorage
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return backend, nil
}

// recovererJSON converts panics into a generic JSON 500 while logging the
// full detail server-side.
func recovererJSON(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"an unexpected error occurred, please try again"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
