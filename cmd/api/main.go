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
	"go.uber.org/zap"

	"github.com/brightpath-ai/tutoring-platform/internal/config"
	"github.com/brightpath-ai/tutoring-platform/internal/handler"
	"github.com/brightpath-ai/tutoring-platform/internal/llm"
	"github.com/brightpath-ai/tutoring-platform/internal/middleware"
	"github.com/brightpath-ai/tutoring-platform/internal/model"
	natsclient "github.com/brightpath-ai/tutoring-platform/internal/nats"
	"github.com/brightpath-ai/tutoring-platform/internal/service"
	"github.com/brightpath-ai/tutoring-platform/internal/store"
	"github.com/brightpath-ai/tutoring-platform/pkg/logger"
	"github.com/brightpath-ai/tutoring-platform/pkg/tracing"
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

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", zap.Error(err))
		os.Exit(1)
	}

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "tutoring-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open the database
	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		os.Exit(1)
	}
	if err := db.Migrate(); err != nil {
		log.Error("failed to run migrations", zap.Error(err))
		os.Exit(1)
	}

	// Connect to NATS
	natsClient, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer natsClient.Close()

	publisher := natsclient.NewPublisher(natsClient)
	if err := publisher.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure stream", zap.Error(err))
		os.Exit(1)
	}

	// Build the LLM provider registry. The default provider goes first so
	// the registry falls back to it for unknown models.
	registry := buildRegistry(cfg, log)

	// Stores
	users := store.NewUsers(db)
	conversations := store.NewConversations(db)
	messages := store.NewMessages(db)
	quizzes := store.NewQuizzes(db)
	assignments := store.NewAssignments(db)
	announcements := store.NewAnnouncements(db)
	profiles := store.NewProfiles(db)

	// Services
	sessionSvc := service.NewSessionService(users, cfg.JWTSecret, cfg.JWTExpiration, log)
	conversationSvc := service.NewConversationService(conversations, log)
	messageSvc := service.NewMessageService(conversations, messages, users, profiles, registry, publisher, log)
	quizSvc := service.NewQuizService(quizzes, users, registry, log)
	assignmentSvc := service.NewAssignmentService(assignments, users, log)
	announcementSvc := service.NewAnnouncementService(announcements, log)
	studentSvc := service.NewStudentService(users, profiles, log)
	adminSvc := service.NewAdminService(users, conversations, log)

	// Handlers
	healthHandler := handler.NewHealthHandler(db, natsClient, registry)
	authHandler := handler.NewAuthHandler(sessionSvc, log)
	conversationHandler := handler.NewConversationHandler(conversationSvc, log)
	messageHandler := handler.NewMessageHandler(messageSvc, log)
	streamHandler := handler.NewStreamHandler(messageSvc, log)
	quizHandler := handler.NewQuizHandler(quizSvc, log)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc, log)
	announcementHandler := handler.NewAnnouncementHandler(announcementSvc, log)
	studentHandler := handler.NewStudentHandler(studentSvc, messageSvc, log)
	adminHandler := handler.NewAdminHandler(adminSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
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

	// Public auth endpoints, rate limited by IP
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
	})

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		// Current user
		r.Get("/me", authHandler.Me)
		r.Put("/me/model", authHandler.UpdateModel)
		r.Get("/models", healthHandler.Models)

		// Conversations
		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Create)
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Put("/", conversationHandler.Update)
				r.Delete("/", conversationHandler.Delete)

				// Messages
				r.Get("/messages", messageHandler.List)
				r.Post("/messages", messageHandler.Send)
				r.Put("/messages/{messageID}/flag", messageHandler.Flag)

				// Streaming
				r.Post("/stream", streamHandler.StreamMessage)
			})
		})

		// Announcements: list and read receipts for everyone, authoring
		// guarded below.
		r.Get("/announcements", announcementHandler.List)
		r.Post("/announcements/{id}/read", announcementHandler.MarkRead)

		// Assignments: list for everyone, submission for students.
		r.Get("/assignments", assignmentHandler.List)
		r.Post("/assignments/{id}/submissions", assignmentHandler.Submit)
		r.Get("/submissions", assignmentHandler.ListOwnSubmissions)

		// Student quiz endpoints
		r.Get("/quiz-assignments", quizHandler.ListAssigned)
		r.Post("/quiz-assignments/{id}/submit", quizHandler.Submit)

		// Teacher endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleTeacher, model.RoleAdmin))

			r.Post("/quizzes", quizHandler.Generate)
			r.Get("/quizzes", quizHandler.List)
			r.Get("/quizzes/{id}", quizHandler.Get)
			r.Delete("/quizzes/{id}", quizHandler.Delete)
			r.Post("/quizzes/{id}/assign", quizHandler.Assign)
			r.Get("/quizzes/{id}/assignments", quizHandler.ListAssignments)

			r.Post("/assignments", assignmentHandler.Create)
			r.Get("/assignments/{id}/submissions", assignmentHandler.ListSubmissions)
			r.Put("/submissions/{id}/grade", assignmentHandler.Grade)

			r.Post("/announcements", announcementHandler.Create)
			r.Put("/announcements/{id}", announcementHandler.Update)
			r.Delete("/announcements/{id}", announcementHandler.Delete)

			r.Get("/students", studentHandler.List)
			r.Get("/students/flagged-messages", studentHandler.FlaggedMessages)
			r.Get("/students/{id}/profile", studentHandler.GetProfile)
			r.Put("/students/{id}/profile", studentHandler.UpsertProfile)
		})

		// Admin endpoints
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin))

			r.Post("/users", adminHandler.CreateUser)
			r.Get("/users", adminHandler.ListUsers)
			r.Put("/users/{id}", adminHandler.UpdateUser)
			r.Delete("/users/{id}", adminHandler.DeleteUser)

			r.Get("/conversations", adminHandler.ListConversations)
			r.Delete("/conversations/{id}", adminHandler.PurgeConversation)
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
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
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
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// buildRegistry creates a client for every provider with a configured
// key, ordering the default provider first.
func buildRegistry(cfg *config.Config, log *logger.Logger) *llm.Registry {
	type builder struct {
		name  string
		build func() (llm.Client, error)
	}

	builders := []builder{
		{"anthropic", func() (llm.Client, error) {
			if cfg.AnthropicAPIKey == "" {
				return nil, nil
			}
			return llm.NewAnthropicClient(cfg.AnthropicAPIKey)
		}},
		{"openai", func() (llm.Client, error) {
			if cfg.OpenAIAPIKey == "" {
				return nil, nil
			}
			return llm.NewOpenAIClient(cfg.OpenAIAPIKey)
		}},
		{"gemini", func() (llm.Client, error) {
			if cfg.GeminiAPIKey == "" {
				return nil, nil
			}
			return llm.NewGeminiClient(cfg.GeminiAPIKey, log)
		}},
		{"compat", func() (llm.Client, error) {
			if cfg.CompatAPIKey == "" {
				return nil, nil
			}
			return llm.NewCompatClient(cfg.CompatBaseURL, cfg.CompatAPIKey, nil, log)
		}},
	}

	// Move the default provider to the front.
	for i, b := range builders {
		if b.name == cfg.DefaultProvider && i > 0 {
			builders[0], builders[i] = builders[i], builders[0]
			break
		}
	}

	var clients []llm.Client
	for _, b := range builders {
		c, err := b.build()
		if err != nil {
			log.Warn("failed to create LLM client",
				zap.String("provider", b.name),
				zap.Error(err))
			continue
		}
		if c == nil {
			continue
		}
		clients = append(clients, c)
		log.Info("LLM provider configured", zap.String("provider", b.name))
	}
	return llm.NewRegistry(clients...)
}
