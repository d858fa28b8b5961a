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
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/finmate-ai/voice-platform/internal/config"
	"github.com/finmate-ai/voice-platform/internal/docstore"
	"github.com/finmate-ai/voice-platform/internal/document"
	"github.com/finmate-ai/voice-platform/internal/handler"
	"github.com/finmate-ai/voice-platform/internal/llm"
	"github.com/finmate-ai/voice-platform/internal/middleware"
	"github.com/finmate-ai/voice-platform/internal/pipeline"
	"github.com/finmate-ai/voice-platform/internal/querylog"
	"github.com/finmate-ai/voice-platform/internal/retrieval"
	"github.com/finmate-ai/voice-platform/internal/sarvam"
	"github.com/finmate-ai/voice-platform/internal/session"
	"github.com/finmate-ai/voice-platform/pkg/logger"
	"github.com/finmate-ai/voice-platform/pkg/tracing"
)

func main() {
	// .env is optional; real deployments set environment variables.
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting voice platform API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "voice-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", "error", err)
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// NATS backs only the recent-queries log; the pipeline runs without it.
	var natsClient *querylog.Client
	if cfg.NATSURL != "" {
		natsClient, err = querylog.Connect(querylog.ConnConfig{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("NATS unavailable, query log disabled", "error", err)
			natsClient = nil
		} else {
			defer natsClient.Close()
		}
	}

	qlog, err := querylog.New(ctx, natsClient, log)
	if err != nil {
		log.Error("failed to initialize query log", "error", err)
		os.Exit(1)
	}

	docs, err := docstore.Open(docstore.Options{
		Dir:      cfg.DocCacheDir,
		InMemory: cfg.DocCacheInMemory,
	})
	if err != nil {
		log.Error("failed to open document cache", "error", err)
		os.Exit(1)
	}
	defer docs.Close()

	llmClient, err := newLLMClient(ctx, cfg)
	if err != nil {
		log.Error("failed to create LLM client", "error", err)
		os.Exit(1)
	}

	speech := sarvam.NewClient(cfg.SpeechBaseURL, cfg.SpeechAPIKey, cfg.SpeechTimeout,
		sarvam.WithVoice(cfg.DefaultVoice))

	var retriever pipeline.Retriever
	if cfg.AssistantBaseURL != "" {
		retriever = retrieval.NewAssistantClient(cfg.AssistantBaseURL, cfg.AssistantAPIKey,
			cfg.AssistantName, cfg.AssistantTimeout)
	} else {
		log.Warn("no retrieval assistant configured, answers run without RAG context")
	}

	sessions := session.NewStore(cfg.HistoryLimit)

	pipe := pipeline.New(pipeline.Config{
		ReasoningLanguage: cfg.ReasoningLanguage,
		DefaultLanguage:   cfg.DefaultLanguage,
		Model:             cfg.LLMModel,
		ConfidenceEnabled: cfg.ConfidenceEnabled,
		CallTimeout:       cfg.LLMTimeout,
	}, speech, retriever, docs, llmClient, sessions, log)

	healthHandler := handler.NewHealthHandler(natsClient, func() bool { return docs != nil })
	wsHandler := handler.NewWSHandler(pipe, sessions, qlog, log)
	whatsappHandler := handler.NewWhatsAppHandler(pipe, qlog, log)
	documentsHandler := handler.NewDocumentsHandler(document.NewProcessor(), docs, pipe, log)
	advisoryHandler := handler.NewAdvisoryHandler(qlog, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// Live chat/voice channel.
	r.Get("/ws", wsHandler.Serve)

	// Store-and-forward messaging webhook.
	r.Group(func(r chi.Router) {
		r.Use(middleware.SenderRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Post("/webhook/whatsapp", whatsappHandler.Receive)
	})

	// Management API.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/sessions/{sessionID}/documents", func(r chi.Router) {
			r.Post("/", documentsHandler.Upload)
			r.Get("/", documentsHandler.Get)
			r.Delete("/", documentsHandler.Delete)
		})

		r.Route("/advisory", func(r chi.Router) {
			r.Get("/interest-rates", advisoryHandler.InterestRates)
			r.Get("/financial-tips", advisoryHandler.FinancialTips)
			r.Get("/recent-queries", advisoryHandler.RecentQueries)
			r.Post("/save-chat", advisoryHandler.SaveChat)
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// newLLMClient picks the reasoning provider from config.
func newLLMClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	provider := llm.Provider(cfg.LLMProvider)
	var apiKey string
	switch provider {
	case llm.ProviderGroq:
		apiKey = cfg.GroqAPIKey
	case llm.ProviderGemini:
		apiKey = cfg.GeminiAPIKey
	case llm.ProviderAnthropic:
		apiKey = cfg.AnthropicAPIKey
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("missing API key for LLM provider %q", cfg.LLMProvider)
	}
	return llm.NewClient(ctx, provider, apiKey)
}
