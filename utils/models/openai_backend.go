package models

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kris-hansen/tagup/utils/config"
	"github.com/kris-hansen/tagup/utils/retry"
	"github.com/kris-hansen/tagup/utils/vocab"
)

// banBias is the logit bias that removes a token from sampling
const banBias = -100

// OpenAIBackend calls an OpenAI-compatible completions endpoint such as a
// vLLM server hosting a decoder-only tag model.
type OpenAIBackend struct {
	client  *openai.Client
	model   string
	vocab   *vocab.Vocabulary
	timeout time.Duration
	retry   retry.Config
	logger  *zap.Logger
}

// NewOpenAIBackend creates a backend for model on the endpoint in cfg. The
// endpoint may be given with or without the /v1 suffix.
func NewOpenAIBackend(cfg config.BackendConfig, model string, v *vocab.Vocabulary, logger *zap.Logger) *OpenAIBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if !strings.HasSuffix(endpoint, "/v1") {
		endpoint += "/v1"
	}
	clientConfig.BaseURL = endpoint

	return &OpenAIBackend{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		vocab:   v,
		timeout: cfg.Timeout,
		retry:   retry.DefaultConfig.WithMaxRetries(cfg.MaxRetries),
		logger:  logger.With(zap.String("backend", "openai"), zap.String("model", model)),
	}
}

// Name returns the backend name
func (b *OpenAIBackend) Name() string { return "openai" }

// Vocabulary returns the vocabulary loaded for the model
func (b *OpenAIBackend) Vocabulary() *vocab.Vocabulary { return b.vocab }

// ListModels returns the model ids served by the endpoint, sorted
func (b *OpenAIBackend) ListModels(ctx context.Context) ([]string, error) {
	list, err := b.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing models: %w", err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

// Generate sends the template as a completion prompt. Encoder text is not
// supported by the completions API.
func (b *OpenAIBackend) Generate(ctx context.Context, req Request) (Output, error) {
	if req.Text != "" {
		return Output{}, ErrEncoderInputUnsupported
	}
	creq := b.completionRequest(req)

	b.logger.Debug("sending completion request",
		zap.Int("prompt_chars", len(req.Template)),
		zap.Int("max_tokens", creq.MaxTokens),
		zap.Int("banned_tokens", len(creq.LogitBias)))

	text, err := retry.Do(ctx, b.retry, retry.IsRetryable, func() (string, error) {
		callCtx := ctx
		if b.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, b.timeout)
			defer cancel()
		}
		resp, err := b.client.CreateCompletion(callCtx, creq)
		if err != nil {
			return "", fmt.Errorf("completion request to %s: %w", b.model, err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no completion choices returned for %s", b.model)
		}
		return resp.Choices[0].Text, nil
	})
	if err != nil {
		return Output{}, err
	}

	raw := req.Template + text
	out := Output{
		Full: stripSpecial(raw, b.vocab),
		New:  stripSpecial(text, b.vocab),
		Raw:  raw,
	}
	b.logger.Debug("completion received", zap.Int("completion_chars", len(text)))
	return out, nil
}

func (b *OpenAIBackend) completionRequest(req Request) openai.CompletionRequest {
	p := req.Params
	creq := openai.CompletionRequest{
		Model:     b.model,
		Prompt:    req.Template,
		MaxTokens: p.MaxNewTokens,
		N:         1,
		TopP:      float32(p.TopP),
		Seed:      p.Seed,
	}
	if p.DoSample {
		creq.Temperature = float32(p.Temperature)
	} else {
		// zero is dropped by omitempty, so greedy decoding uses the smallest
		// positive temperature
		creq.Temperature = math.SmallestNonzeroFloat32
	}
	if req.Stop != "" {
		creq.Stop = []string{req.Stop}
	}
	if p.TopK > 0 && p.DoSample {
		b.logger.Debug("top_k is not part of the completions API, ignoring", zap.Int("top_k", p.TopK))
	}
	if p.NumBeams > 1 {
		b.logger.Debug("beam search is not part of the completions API, ignoring", zap.Int("num_beams", p.NumBeams))
	}
	if req.Negative != "" {
		b.logger.Warn("negative prompt is not supported by the completions API, ignoring")
	}

	for _, group := range req.Ban {
		if len(group) != 1 {
			b.logger.Warn("cannot ban a multi-token sequence through logit bias, skipping",
				zap.Ints("token_ids", group))
			continue
		}
		if creq.LogitBias == nil {
			creq.LogitBias = make(map[string]int, len(req.Ban))
		}
		creq.LogitBias[strconv.Itoa(group[0])] = banBias
	}
	return creq
}
