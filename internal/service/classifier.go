package service

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/ynakagi/homerelay/internal/domain"
	"github.com/ynakagi/homerelay/internal/llm"
)

// Classifier turns a user message into a structured intent. Implementations
// must never fail: classification problems degrade to the none variant.
type Classifier interface {
	Classify(ctx context.Context, text string, deviceNames []string) domain.Intent
}

// IntentClassifier delegates to a completion provider and strictly parses
// the result. Any provider or parse failure yields the none intent; the
// completion API never gets to crash the event path.
type IntentClassifier struct {
	router *llm.Router
	model  string
}

// NewIntentClassifier creates a classifier over the provider router. model
// may be empty to use each provider's default.
func NewIntentClassifier(router *llm.Router, model string) *IntentClassifier {
	return &IntentClassifier{router: router, model: model}
}

// Classify submits text plus the user's device names for classification.
func (c *IntentClassifier) Classify(ctx context.Context, text string, deviceNames []string) domain.Intent {
	provider, err := c.router.GetProvider("")
	if err != nil {
		log.Error().Err(err).Msg("no usable completion provider")
		return domain.NoneIntent()
	}

	resp, err := provider.Classify(ctx, llm.Request{Text: text, DeviceNames: deviceNames}, c.model)
	if err != nil {
		log.Warn().Err(err).Str("provider", provider.Name()).Msg("classification request failed")
		return domain.NoneIntent()
	}

	intent, err := llm.ParseIntent(resp.Content)
	if err != nil {
		log.Warn().
			Err(err).
			Str("provider", provider.Name()).
			Str("content", truncate(resp.Content, 200)).
			Msg("classifier output failed validation")
		return domain.NoneIntent()
	}

	log.Debug().
		Str("provider", provider.Name()).
		Str("model", resp.Model).
		Int("tokens_used", resp.TokensUsed).
		Int64("latency_ms", resp.LatencyMs).
		Str("intent", string(intent.Kind)).
		Msg("classified message")

	return intent
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
