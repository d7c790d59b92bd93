// Package inference provides clients for the embedding / text generation
// collaborator.
package inference

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/glimpsebot/glimpse/api/schemas"
	"github.com/glimpsebot/glimpse/internal/config"
)

// ProviderOllama is the only provider currently shipped. The factory exists
// so adding another backend stays a one-case change.
const ProviderOllama = "ollama"

// NewClient builds an InferenceClient from configuration.
func NewClient(cfg config.InferenceConfig, logger *zap.Logger) (schemas.InferenceClient, error) {
	switch cfg.Provider {
	case ProviderOllama, "":
		return NewOllamaClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown inference provider %q. Supported: [%s]", cfg.Provider, ProviderOllama)
	}
}
