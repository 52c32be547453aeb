package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/zapdesk/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/zapdesk/internal/api/middlewares"
	"github.com/markdave123-py/zapdesk/internal/config"
	"github.com/markdave123-py/zapdesk/internal/core/dispatch"
	"github.com/markdave123-py/zapdesk/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, queue dispatch.Queue, conversations *services.ConversationService, faqs *services.FAQService, agents *services.AgentService) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(cfg, queue, conversations, faqs, agents),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// NewRouter builds the route table.
func NewRouter(cfg *config.Config, queue dispatch.Queue, conversations *services.ConversationService, faqs *services.FAQService, agents *services.AgentService) http.Handler {
	verbose := !cfg.IsProduction()
	webhookHandler := handlers.NewWebhookHandler(queue, conversations, cfg.WebhookVerifyToken, verbose)
	conversationHandler := handlers.NewConversationHandler(conversations, verbose)
	faqHandler := handlers.NewFAQHandler(faqs, verbose)
	authHandler := handlers.NewAuthHandler(agents, verbose)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	limited := func(next http.Handler) http.Handler { return next }
	if !cfg.IsTest() {
		limited = appMiddleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow).Middleware
	}

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/webhook", func(wh chi.Router) {
		wh.Get("/", webhookHandler.Verify)
		wh.Post("/", webhookHandler.Receive)
		if !cfg.IsProduction() {
			wh.With(limited).Post("/test", webhookHandler.Test)
		}
	})

	// API routes
	r.Route("/api", func(api chi.Router) {
		api.Use(limited)

		// public endpoints
		api.Post("/login", authHandler.Login)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))

			protected.Post("/agents", authHandler.CreateAgent)

			protected.Get("/conversations", conversationHandler.List)
			protected.Get("/conversations/{id}", conversationHandler.Get)
			protected.Post("/conversations/{id}/transfer", conversationHandler.Transfer)
			protected.Post("/conversations/{id}/close", conversationHandler.Close)

			protected.Get("/faq", faqHandler.List)
			protected.Post("/faq", faqHandler.Create)
			protected.Get("/faq/{id}", faqHandler.Get)
			protected.Put("/faq/{id}", faqHandler.Update)
			protected.Delete("/faq/{id}", faqHandler.Delete)
		})
	})

	return r
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
