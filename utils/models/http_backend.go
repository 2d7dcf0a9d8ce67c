package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kris-hansen/tagup/utils/config"
	"github.com/kris-hansen/tagup/utils/retry"
	"github.com/kris-hansen/tagup/utils/vocab"
)

// HTTPBackend talks to a generation sidecar that hosts the model weights.
//
// The sidecar accepts POST /generate with a JSON generateRequest and answers
// with an Output. Errors are reported as {"error": "..."} with a non-200
// status. GET /health returns 200 when the model is loaded.
type HTTPBackend struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
	vocab    *vocab.Vocabulary
	retry    retry.Config
	logger   *zap.Logger
}

type generateRequest struct {
	Model string `json:"model"`
	Request
}

type errorBody struct {
	Error string `json:"error"`
}

// NewHTTPBackend creates a sidecar backend for model
func NewHTTPBackend(cfg config.BackendConfig, model string, v *vocab.Vocabulary, logger *zap.Logger) *HTTPBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPBackend{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		model:    model,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		vocab:    v,
		retry:    retry.DefaultConfig.WithMaxRetries(cfg.MaxRetries),
		logger:   logger.With(zap.String("backend", "http"), zap.String("model", model)),
	}
}

// Name returns the backend name
func (b *HTTPBackend) Name() string { return "http" }

// Vocabulary returns the vocabulary loaded for the model
func (b *HTTPBackend) Vocabulary() *vocab.Vocabulary { return b.vocab }

// Generate posts req to the sidecar
func (b *HTTPBackend) Generate(ctx context.Context, req Request) (Output, error) {
	body, err := json.Marshal(generateRequest{Model: b.model, Request: req})
	if err != nil {
		return Output{}, fmt.Errorf("error marshaling request: %w", err)
	}
	b.logger.Debug("sending generate request",
		zap.Int("text_chars", len(req.Text)),
		zap.Int("template_chars", len(req.Template)),
		zap.String("stop", req.Stop))

	return retry.Do(ctx, b.retry, retry.IsRetryable, func() (Output, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"/generate", bytes.NewReader(body))
		if err != nil {
			return Output{}, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if b.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
		}

		resp, err := b.client.Do(httpReq)
		if err != nil {
			return Output{}, fmt.Errorf("error calling generation sidecar: %w (is it running?)", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return Output{}, fmt.Errorf("error reading sidecar response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			msg := strings.TrimSpace(string(data))
			var eb errorBody
			if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
				msg = eb.Error
			}
			b.logger.Debug("sidecar returned error", zap.Int("status", resp.StatusCode), zap.String("body", msg))
			return Output{}, fmt.Errorf("generation sidecar returned status %d: %s", resp.StatusCode, msg)
		}

		var out Output
		if err := json.Unmarshal(data, &out); err != nil {
			return Output{}, fmt.Errorf("error decoding sidecar response: %w", err)
		}
		return out, nil
	})
}

// Ping checks the sidecar health endpoint
func (b *HTTPBackend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("generation sidecar not reachable at %s: %w", b.endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("generation sidecar returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}
