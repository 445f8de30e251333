package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lalith-99/disputedesk/internal/api"
	"github.com/lalith-99/disputedesk/internal/config"
	"github.com/lalith-99/disputedesk/internal/db"
	"github.com/lalith-99/disputedesk/internal/identity"
	"github.com/lalith-99/disputedesk/internal/locks"
	"github.com/lalith-99/disputedesk/internal/middleware"
	"github.com/lalith-99/disputedesk/internal/observ"
	"github.com/lalith-99/disputedesk/internal/repository/postgres"
	"github.com/lalith-99/disputedesk/internal/session"
	"github.com/lalith-99/disputedesk/internal/stream"
	"github.com/lalith-99/disputedesk/internal/ticket"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Startup has no parent deadline; take as long as the collaborators
	// need to come up. Per-request contexts get real deadlines later.
	database, err := db.New(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	defer redisClient.Close()

	// Storage collaborators.
	pool := database.Pool()
	userRepo := postgres.NewUserStore(pool)
	ticketRepo := postgres.NewTicketStore(pool)
	commentRepo := postgres.NewCommentStore(pool)

	// One lock arena shared by the state machine and the stream engine:
	// status transitions and sequence assignment serialize against each
	// other per ticket.
	arena := locks.New()

	bus := stream.NewRedisBus(redisClient, logger)
	engine := stream.NewEngine(commentRepo, ticketRepo, bus, arena, cfg.StorageTimeout, logger)
	resolver := identity.NewResolver(userRepo, logger)
	ticketSvc := ticket.NewService(ticketRepo, arena, cfg.StorageTimeout, logger)
	coord := session.NewCoordinator(resolver, ticketSvc, engine, logger)

	authHandler := api.NewAuthHandler(userRepo, cfg.JWTSecret, cfg.JWTTTL, logger)
	ticketHandler := api.NewTicketHandler(coord, logger)
	streamHandler := api.NewStreamHandler(coord, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery())

	// Health is public: load balancers cannot carry tokens.
	srv.GET("/v1/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv.POST("/v1/auth/signup", authHandler.Signup)
	srv.POST("/v1/auth/login", authHandler.Login)

	v1 := srv.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	v1.POST("/tickets", ticketHandler.Create)
	v1.GET("/tickets", ticketHandler.List)
	v1.GET("/tickets/:id", ticketHandler.Get)
	v1.POST("/tickets/:id/resolve", ticketHandler.Resolve)
	v1.POST("/tickets/:id/comments", ticketHandler.PostComment)
	v1.GET("/tickets/:id/stream", streamHandler.Attach)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv,
	}

	logger.Info("starting DisputeDesk",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	// Shutdown closes listeners and waits for in-flight requests; open
	// websockets end when their request contexts are cancelled.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.StorageTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
