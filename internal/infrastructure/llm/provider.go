package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/coding-vasu/devdose-sub000/internal/config"
	"github.com/coding-vasu/devdose-sub000/internal/ports"
)

// New returns the completer selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (ports.Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		return NewChatGPTClient(cfg), nil
	case "ollama":
		return NewOllamaClient(cfg)
	case "gemini":
		return NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
