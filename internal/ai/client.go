// Package ai talks to an OpenAI compatible chat completion API and turns its
// answers into insurance recommendations and scenario simulations.
package ai

import (
	"bytes"         // Byte buffers
	"context"       // Request scoped context
	"encoding/json" // JSON encoding
	"errors"        // Error inspection
	"fmt"           // String formatting
	"io"            // I/O helpers
	"net/http"      // HTTP client and status codes
	"strings"       // String helpers
	"time"          // Timestamps and durations

	"github.com/sirupsen/logrus" // Logging library
	"github.com/tidwall/gjson"   // JSON path queries
	"golang.org/x/time/rate"     // Token bucket limiter
)

// ErrDisabled is returned when no provider is configured
var ErrDisabled = errors.New("ai provider disabled")

// Provider completes a chat prompt
type Provider interface {
	Enabled() bool
	Complete(ctx context.Context, system, user string) (string, error)
}

// ClientConfig configures the HTTP provider
type ClientConfig struct {
	APIKey            string        // Empty disables the client
	BaseURL           string        // API root, without /chat/completions
	Model             string        // Model name
	Timeout           time.Duration // Per request timeout
	RequestsPerSecond float64       // Outbound request rate
}

// Client is the OpenAI compatible HTTP provider
type Client struct {
	cfg     ClientConfig  // Client settings
	http    *http.Client  // HTTP client with timeout
	limiter *rate.Limiter // Outbound rate limit
}

// NewClient builds a provider; an empty API key yields a disabled client
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	burst := int(cfg.RequestsPerSecond) // One second worth of requests
	if burst < 1 {
		burst = 1
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
	}
}

// Enabled reports whether an API key is configured
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

// Complete sends one chat completion and returns the first choice's content
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	// Wait for an outbound slot
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("ai rate limiter: %w", err)
	}

	// Build request
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.4, // Low variance answers
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")      // JSON body
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey) // API key

	// Send request
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // Cap at 1 MiB
	if err != nil {
		return "", fmt.Errorf("ai response read failed: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"model":       c.cfg.Model,                        // Model name
		"status":      resp.StatusCode,                    // HTTP status
		"duration_ms": time.Since(started).Milliseconds(), // Round trip
	}).Debug("AI completion")

	// Surface the provider's error message
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("ai provider returned %d: %s", resp.StatusCode, msg)
	}
	// First choice only
	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() || strings.TrimSpace(content.String()) == "" {
		return "", errors.New("ai provider returned no content")
	}
	return content.String(), nil
}
