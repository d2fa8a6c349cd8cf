package llm

import "context"

// Request contains intent-classification parameters
type Request struct {
	// Text is the raw user message.
	Text string

	// DeviceNames are the user's known device names, embedded in the system
	// prompt so the model maps utterances onto real devices.
	DeviceNames []string
}

// Response contains the raw completion result before intent parsing
type Response struct {
	Content    string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for completion-API providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Classify submits the user text for intent classification and returns
	// the raw completion content. Callers parse it with ParseIntent.
	Classify(ctx context.Context, req Request, model string) (*Response, error)
}
