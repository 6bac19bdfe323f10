package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nellx/marketplace-api/internal/auth"
	"github.com/nellx/marketplace-api/internal/chat"
	"github.com/nellx/marketplace-api/internal/config"
	"github.com/nellx/marketplace-api/internal/handler"
	"github.com/nellx/marketplace-api/internal/middleware"
	"github.com/nellx/marketplace-api/internal/model"
	"github.com/nellx/marketplace-api/internal/notify"
	"github.com/nellx/marketplace-api/internal/store"
	"github.com/nellx/marketplace-api/internal/ws"
	"github.com/nellx/marketplace-api/pkg/logger"
	"github.com/nellx/marketplace-api/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting marketplace API",
		zap.String("port", cfg.ServerPort),
		zap.Bool("tracing", cfg.TracingEnabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "marketplace-api", cfg.TracingEndpoint)
		if err != nil {
			log.Fatal("failed to initialize tracing", zap.Error(err))
		}
		defer tracing.Shutdown(context.Background(), tp)
	}

	db, err := store.Open(cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	if cfg.DatabaseAutoMigrate {
		if err := store.Migrate(db); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	users := store.NewUserStore(db)
	chats := store.NewChatStore(db, log)
	listings := store.NewListingStore(db)
	categories := store.NewCategoryStore(db)
	monetization := store.NewMonetizationStore(db)

	// Offline notification channel: prefer NATS hand-off to relay
	// workers, fall back to direct Telegram delivery, then to a no-op.
	var notifier chat.Notifier = notify.Noop{}
	if cfg.NATSURL != "" {
		nc, err := notify.Connect(cfg.NATSURL, cfg.NATSToken, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer nc.Close()
		notifier = notify.NewNATSPublisher(nc, log)
		log.Info("offline notifications via NATS relay")
	} else if cfg.TelegramBotToken != "" {
		notifier = notify.NewTelegram(cfg.TelegramAPIBase, cfg.TelegramBotToken, users, log)
		log.Info("offline notifications via direct Telegram delivery")
	} else {
		log.Warn("no notification channel configured, offline users will not be notified")
	}

	registry := ws.NewRegistry(log)
	authService := auth.NewService(users, cfg.JWTSecret, cfg.JWTExpiration)
	chatService := chat.NewService(chats, users, listings, registry, notifier, log, cfg.NotifyTimeout)

	healthHandler := handler.NewHealthHandler(db)
	authHandler := handler.NewAuthHandler(authService, users, log)
	userHandler := handler.NewUserHandler(users, log)
	chatHandler := handler.NewChatHandler(chatService, log)
	listingHandler := handler.NewListingHandler(listings, log)
	categoryHandler := handler.NewCategoryHandler(categories, log)
	monetizationHandler := handler.NewMonetizationHandler(monetization, log)
	wsHandler := handler.NewWSHandler(chatService, registry, cfg.JWTSecret, cfg.WSWriteTimeout, cfg.WSPongTimeout, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Logging(log))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// Websocket upgrade authenticates via token query parameter.
	r.Get("/ws", wsHandler.Serve)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		// Public catalog.
		r.Get("/categories", categoryHandler.Tree)
		r.Get("/categories/{id}", categoryHandler.Get)
		r.Get("/listings", listingHandler.List)
		r.Get("/listings/{id}", listingHandler.Get)

		// Authenticated surface.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

			r.Get("/auth/me", authHandler.Me)
			r.Get("/users/{id}", userHandler.Get)
			r.Patch("/users/me", userHandler.UpdateMe)

			r.Route("/chat", func(r chi.Router) {
				r.Get("/conversations", chatHandler.List)
				r.Post("/conversations", chatHandler.Start)
				r.Get("/conversations/{id}", chatHandler.Get)
				r.Get("/conversations/{id}/messages", chatHandler.Messages)
				r.Post("/conversations/{id}/messages", chatHandler.Send)
				r.Post("/conversations/{id}/read", chatHandler.Read)
				r.Post("/conversations/{id}/block", chatHandler.Block)
				r.Post("/conversations/{id}/unblock", chatHandler.Unblock)
				r.Delete("/messages/{id}", chatHandler.DeleteMessage)
				r.Get("/unread", chatHandler.Unread)
			})

			r.Get("/listings/mine", listingHandler.Mine)
			r.Post("/listings", listingHandler.Create)
			r.Patch("/listings/{id}", listingHandler.Update)
			r.Delete("/listings/{id}", listingHandler.Delete)
			r.Post("/listings/boost", monetizationHandler.Boost)
			r.Post("/listings/{id}/bump", monetizationHandler.Bump)

			r.Get("/balance", monetizationHandler.Balance)
			r.Get("/balance/transactions", monetizationHandler.Transactions)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(model.RoleAdmin)))
				r.Post("/balance/topup", monetizationHandler.Topup)
				r.Post("/categories", categoryHandler.Create)
			})
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
	}

	go func() {
		log.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("stopped")
}
