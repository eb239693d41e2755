package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/thereayou/nezako-tabletop/internal/audit"
	"github.com/thereayou/nezako-tabletop/internal/blob"
	"github.com/thereayou/nezako-tabletop/internal/config"
	"github.com/thereayou/nezako-tabletop/internal/database"
	"github.com/thereayou/nezako-tabletop/internal/dice"
	"github.com/thereayou/nezako-tabletop/internal/handlers"
	"github.com/thereayou/nezako-tabletop/internal/middleware"
	"github.com/thereayou/nezako-tabletop/internal/store"
	"github.com/thereayou/nezako-tabletop/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	Router    *gin.Engine
	Store     *store.Store
	Hub       *websocket.Hub
	Forwarder *audit.Forwarder
	Redis     *redis.Client
	DB        *database.Database

	cfg    config.Config
	logger *slog.Logger
}

// NewServer wires the server. Redis and Postgres are optional and only used
// when their URLs are configured.
func NewServer(cfg config.Config, logger *slog.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}

	var sinks []audit.Sink
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("redis connect failed: %w", err)
		}
		s.Redis = rdb
		sinks = append(sinks, audit.NewStreamSink(rdb, cfg.AuditStream, cfg.AuditStreamMaxLen))
	}

	if cfg.DatabaseURL != "" {
		db := &database.Database{}
		if err := db.Connect(cfg.DatabaseURL); err != nil {
			s.closeClients()
			return nil, fmt.Errorf("postgres connect failed: %w", err)
		}
		s.DB = db
		sinks = append(sinks, db)
	}

	blobs, err := blob.NewDiskStore(cfg.UploadDir)
	if err != nil {
		s.closeClients()
		return nil, err
	}

	s.Forwarder = audit.NewForwarder(cfg.AuditBuffer, logger, sinks...)
	s.Store = store.New(store.WithRecorder(s.Forwarder))
	s.Hub = websocket.NewHub(logger)

	roller := dice.NewRoller(dice.Limits{
		MaxCount:    cfg.MaxDiceCount,
		MaxSides:    cfg.MaxDiceSides,
		MaxModifier: cfg.MaxDiceMod,
	})
	sessionH := handlers.NewSessionHandler(handlers.SessionDeps{
		Store:     s.Store,
		Blobs:     blobs,
		Roller:    roller,
		Publisher: s.Hub,
		Presence:  s.Hub,
		MaxUpload: cfg.MaxUploadSize,
		Logger:    logger,
	})
	messageH := handlers.NewMessageHandler(s.Store, s.Hub, roller, logger)
	wsH := handlers.NewWebSocketHandler(s.Hub, messageH, cfg.AllowedOrigins, logger)

	var counter middleware.Counter
	if s.Redis != nil {
		counter = middleware.NewRedisCounter(s.Redis)
	}

	switch cfg.GinMode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.GinMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger))
	APIEndpoints(router, sessionH, wsH, s.health,
		middleware.RateLimit(counter, cfg.RateLimitRequests, cfg.RateLimitWindow, logger))
	s.Router = router

	logger.Info("server configured",
		slog.Bool("redis", s.Redis != nil),
		slog.Bool("postgres", s.DB != nil),
		slog.String("uploads", cfg.UploadDir))
	return s, nil
}

// Start launches the hub and the audit forwarder.
func (s *Server) Start() {
	go s.Hub.Run()
	go s.Forwarder.Run()
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Hijacked websocket connections are not tracked by Shutdown; the hub
	// closes them.
	s.Hub.Stop()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close stops the hub, flushes pending audit entries and closes the clients.
func (s *Server) Close() {
	s.Hub.Stop()
	s.Forwarder.Stop()
	s.closeClients()
}

func (s *Server) closeClients() {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.logger.Warn("redis close", slog.String("error", err.Error()))
		}
		s.Redis = nil
	}
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			s.logger.Warn("postgres close", slog.String("error", err.Error()))
		}
		s.DB = nil
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"rooms":       len(s.Store.ListRooms()),
		"connections": s.Hub.ClientCount(),
	})
}
