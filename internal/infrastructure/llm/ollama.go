package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"

	"github.com/coding-vasu/devdose-sub000/internal/config"
	"github.com/coding-vasu/devdose-sub000/internal/ports"
	"github.com/coding-vasu/devdose-sub000/internal/retry"
)

const defaultOllamaEndpoint = "http://127.0.0.1:11434"

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// OllamaClient implements ports.Completer against a local Ollama server.
type OllamaClient struct {
	client      *ollama.Client
	model       string
	temperature float64
}

var _ ports.Completer = (*OllamaClient)(nil)

// NewOllamaClient builds a client; an empty endpoint targets the local default.
func NewOllamaClient(cfg config.LLMConfig) (*OllamaClient, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" || strings.Contains(endpoint, "openai.com") {
		endpoint = defaultOllamaEndpoint
	}
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse ollama endpoint: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &OllamaClient{
		client:      ollama.NewClient(base, &http.Client{Timeout: timeout}),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Complete runs a non-streamed generation and strips reasoning blocks.
func (c *OllamaClient) Complete(ctx context.Context, system, user string) (string, error) {
	stream := false
	var response strings.Builder
	err := c.client.Generate(ctx, &ollama.GenerateRequest{
		Model:  c.model,
		System: system,
		Prompt: user,
		Stream: &stream,
		Options: map[string]any{
			"temperature": c.temperature,
		},
	}, func(res ollama.GenerateResponse) error {
		response.WriteString(res.Response)
		return nil
	})
	if err != nil {
		var se ollama.StatusError
		if errors.As(err, &se) {
			return "", &retry.StatusError{StatusCode: se.StatusCode, Body: se.ErrorMessage}
		}
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return strings.TrimSpace(thinkBlock.ReplaceAllString(response.String(), "")), nil
}
