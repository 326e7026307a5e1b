// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentdesk/admin-platform/internal/config"
	"github.com/agentdesk/admin-platform/internal/events"
	"github.com/agentdesk/admin-platform/internal/handler"
	"github.com/agentdesk/admin-platform/internal/llm"
	"github.com/agentdesk/admin-platform/internal/middleware"
	"github.com/agentdesk/admin-platform/internal/service"
	"github.com/agentdesk/admin-platform/internal/store"
	"github.com/agentdesk/admin-platform/pkg/logger"
	"github.com/agentdesk/admin-platform/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "admin-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", "error", err)
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to the database and run migrations
	st, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Connect the audit event publisher; disabled when no NATS URL is set
	publisher, err := events.Connect(ctx, cfg.NATSURL, cfg.NATSToken, log)
	if err != nil {
		log.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	// Initialize services
	llmFactory := llm.NewFactory(cfg.DifyBaseURL, cfg.RelayTimeout)
	conversationSvc := service.NewConversationService(st, publisher, log)
	userSvc := service.NewUserService(st, log)
	agentSvc := service.NewAgentService(st, log)
	crmSvc := service.NewCRMService(st, log)
	chatSvc := service.NewChatService(st, conversationSvc, llmFactory, publisher, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(st)
	authHandler := handler.NewAuthHandler(userSvc, cfg.JWTSecret, cfg.JWTExpiration, log)
	conversationHandler := handler.NewConversationHandler(conversationSvc, log)
	agentHandler := handler.NewAgentHandler(agentSvc, log)
	userHandler := handler.NewUserHandler(userSvc, log)
	crmHandler := handler.NewCRMHandler(crmSvc, log)
	chatHandler := handler.NewChatHandler(chatSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Public endpoints
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		// Anonymous chat relay, addressed by agent slug
		r.Post("/chat/{slug}", chatHandler.Relay)

		// Auth
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Authenticated API
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))

			r.Get("/auth/me", authHandler.Me)

			// Conversations and the trash lifecycle
			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", conversationHandler.List)
				r.Get("/search", conversationHandler.Search)
				r.Get("/trash", conversationHandler.ListTrash)
				r.Post("/bulk-delete", conversationHandler.BulkDelete)
				r.Post("/bulk-restore", conversationHandler.BulkRestore)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Delete("/trash/empty", conversationHandler.EmptyTrash)
					r.Delete("/{id}/permanent", conversationHandler.PermanentDelete)
				})

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", conversationHandler.Get)
					r.Delete("/", conversationHandler.Delete)
					r.Post("/restore", conversationHandler.Restore)
				})
			})

			// Agents
			r.Route("/agents", func(r chi.Router) {
				r.Post("/", agentHandler.Create)
				r.Get("/", agentHandler.List)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", agentHandler.Get)
					r.Put("/", agentHandler.Update)
					r.Delete("/", agentHandler.Delete)
					r.Post("/assignments", agentHandler.Assign)
					r.Delete("/assignments", agentHandler.Unassign)
				})
			})

			// User administration
			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/", userHandler.List)
				r.Get("/{id}", userHandler.Get)
				r.Put("/{id}", userHandler.Update)
			})

			// CRM
			r.Route("/customers", func(r chi.Router) {
				r.Post("/", crmHandler.CreateCustomer)
				r.Get("/", crmHandler.ListCustomers)
				r.Get("/{id}", crmHandler.GetCustomer)
				r.Put("/{id}", crmHandler.UpdateCustomer)
				r.Delete("/{id}", crmHandler.DeleteCustomer)
			})
			r.Route("/products", func(r chi.Router) {
				r.Post("/", crmHandler.CreateProduct)
				r.Get("/", crmHandler.ListProducts)
				r.Get("/{id}", crmHandler.GetProduct)
				r.Put("/{id}", crmHandler.UpdateProduct)
				r.Delete("/{id}", crmHandler.DeleteProduct)
			})
			r.Route("/invoices", func(r chi.Router) {
				r.Post("/", crmHandler.CreateInvoice)
				r.Get("/", crmHandler.ListInvoices)
				r.Get("/{id}", crmHandler.GetInvoice)
				r.Put("/{id}/status", crmHandler.UpdateInvoiceStatus)
			})
			r.Route("/payments", func(r chi.Router) {
				r.Post("/", crmHandler.RecordPayment)
				r.Get("/", crmHandler.ListPayments)
			})
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
