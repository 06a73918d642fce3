package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/Chochanguk/Yoribogo/server/internal/metrics"
)

// LLMConfig configures the chat-completions client
type LLMConfig struct {
	APIKey  string
	APIURL  string
	Model   string
	Timeout time.Duration
}

// Message represents a message in the chat
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to an OpenAI-compatible chat-completions API
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

// ChatResponse represents the subset of the chat-completions response we read
type ChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// LLMService is the AIGateway backed by a chat-completions endpoint.
type LLMService struct {
	client  *resty.Client
	apiURL  string
	model   string
	breaker *gobreaker.CircuitBreaker[string]
	log     *zap.Logger
}

// NewLLMService creates a new LLMService instance
func NewLLMService(cfg LLMConfig, log *zap.Logger) (*LLMService, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("%w: AI API URL is required", ErrValidation)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: AI model is required", ErrValidation)
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("llm")

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up says nothing about the endpoint
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &LLMService{
		client:  client,
		apiURL:  cfg.APIURL,
		model:   cfg.Model,
		breaker: breaker,
		log:     log,
	}, nil
}

// Ask sends prompt as a single user message and returns the trimmed answer.
func (s *LLMService) Ask(ctx context.Context, prompt string) (string, error) {
	answer, err := s.breaker.Execute(func() (string, error) {
		return s.complete(ctx, prompt)
	})
	if err != nil {
		status := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			status = "rejected"
		}
		metrics.AIRequestsTotal.WithLabelValues(status).Inc()
		return "", err
	}
	metrics.AIRequestsTotal.WithLabelValues("ok").Inc()
	return answer, nil
}

func (s *LLMService) complete(ctx context.Context, prompt string) (string, error) {
	req := ChatRequest{
		Model:       s.model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: 0.7,
	}

	start := time.Now()
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(s.apiURL)
	if err != nil {
		return "", fmt.Errorf("failed to send chat request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}

	var result ChatResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse chat response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("no choices in chat response")
	}

	answer := strings.TrimSpace(result.Choices[0].Message.Content)
	s.log.Debug("chat completion",
		zap.Duration("latency", time.Since(start)),
		zap.Int("prompt_len", len(prompt)),
		zap.String("answer", truncate(answer, 120)),
	)
	return answer, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
