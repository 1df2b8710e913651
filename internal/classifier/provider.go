package classifier

import (
	"context"
	"fmt"

	"github.com/pbaille/autojournal/internal/breaker"
)

// Unavailable is the provider used when no API key is configured. Every
// call fails, so enrichment falls back to its defaults.
type Unavailable struct{}

// Name implements Provider.
func (Unavailable) Name() string { return "none" }

// Complete implements Provider.
func (Unavailable) Complete(context.Context, string, Options) (string, error) {
	return "", breaker.Permanent(ErrUnavailable)
}

// NewProvider builds the named provider ("anthropic", "gemini" or "none").
// A known provider without an API key degrades to Unavailable.
func NewProvider(name, apiKey, model string) (Provider, error) {
	switch name {
	case "none", "":
		return Unavailable{}, nil
	case "anthropic":
		if apiKey == "" {
			return Unavailable{}, nil
		}
		return NewAnthropic(apiKey, model)
	case "gemini":
		if apiKey == "" {
			return Unavailable{}, nil
		}
		return NewGemini(apiKey, model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}
