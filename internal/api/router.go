package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/ynakagi/homerelay/internal/api/handler"
	customMiddleware "github.com/ynakagi/homerelay/internal/api/middleware"
	"github.com/ynakagi/homerelay/internal/config"
	"github.com/ynakagi/homerelay/internal/domain"
	"github.com/ynakagi/homerelay/internal/line"
	"github.com/ynakagi/homerelay/internal/llm"
	"github.com/ynakagi/homerelay/internal/llm/gemini"
	"github.com/ynakagi/homerelay/internal/llm/ollama"
	"github.com/ynakagi/homerelay/internal/llm/openai"
	"github.com/ynakagi/homerelay/internal/service"
	"github.com/ynakagi/homerelay/internal/switchbot"
)

// NewRouter creates and configures the HTTP router. The profile repository
// and session store are built by the caller since their construction depends
// on the storage backend and may fail.
func NewRouter(cfg *config.Config, profiles domain.ProfileRepository, pinger handler.Pinger, sessions domain.SessionStore) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	// Outbound clients
	lineClient := line.NewClient(cfg.Line.ChannelToken, cfg.Line.BaseURL)
	gateway := switchbot.NewClient(cfg.SwitchBot.BaseURL, cfg.SwitchBot.Timeout)

	// Initialize completion providers
	llmRouter := llm.NewRouter(cfg.LLM.DefaultProvider)
	log.Info().Msgf("Initializing completion providers. Default: %s", cfg.LLM.DefaultProvider)

	if cfg.LLM.OpenAI.APIKey != "" {
		llmRouter.RegisterProvider(openai.NewProvider(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.Model, cfg.LLM.OpenAI.BaseURL))
	}
	if cfg.LLM.Gemini.APIKey != "" {
		llmRouter.RegisterProvider(gemini.NewProvider(cfg.LLM.Gemini.APIKey, cfg.LLM.Gemini.Model))
	}
	if cfg.LLM.Ollama.Host != "" {
		log.Info().Str("host", cfg.LLM.Ollama.Host).Msg("Registering Ollama provider")
		llmRouter.RegisterProvider(ollama.NewProvider(cfg.LLM.Ollama.Host, cfg.LLM.Ollama.DefaultModel))
	}

	// Initialize services
	classifier := service.NewIntentClassifier(llmRouter, "")

	var registration *service.Registration
	if cfg.Tenancy == config.TenancyMulti {
		registration = service.NewRegistration(sessions, profiles, gateway)
	}

	dispatcher := service.NewDispatcher(
		profiles,
		registration,
		classifier,
		gateway,
		lineClient,
		cfg.Tenancy == config.TenancySingle,
	)

	// Initialize handlers
	webhookHandler := handler.NewWebhookHandler(dispatcher, cfg.Server.WebhookTimeout)
	signatureMiddleware := customMiddleware.NewSignatureMiddleware(cfg.Line.ChannelSecret)

	// Webhook route
	r.Group(func(r chi.Router) {
		r.Use(signatureMiddleware.Verify)
		r.Post("/webhook", webhookHandler.Receive)
	})

	// Operational routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(pinger))
		r.Get("/llm-providers", handler.ListLLMProviders(llmRouter))
	})

	return r
}
