package models

import (
	"fmt"
	"math"
)

// GenerationConfig carries the sampling parameters of one backend call
type GenerationConfig struct {
	MaxNewTokens int     `json:"max_new_tokens" yaml:"max_new_tokens"`
	DoSample     bool    `json:"do_sample" yaml:"do_sample"`
	Temperature  float64 `json:"temperature" yaml:"temperature"`
	TopP         float64 `json:"top_p" yaml:"top_p"`
	TopK         int     `json:"top_k" yaml:"top_k"`
	NumBeams     int     `json:"num_beams" yaml:"num_beams"`
	// Seed makes sampling reproducible when set
	Seed *int `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// MaxSeed is the largest accepted seed
const MaxSeed = math.MaxUint32

// DefaultGenerationConfig returns the sampling defaults used by the CLI and server
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		MaxNewTokens: 256,
		DoSample:     true,
		Temperature:  0.9,
		TopP:         1.0,
		TopK:         50,
		NumBeams:     1,
	}
}

// Greedy returns deterministic decoding limited to maxNewTokens
func Greedy(maxNewTokens int) GenerationConfig {
	return GenerationConfig{
		MaxNewTokens: maxNewTokens,
		DoSample:     false,
		Temperature:  1.0,
		TopP:         1.0,
		NumBeams:     1,
	}
}

// WithSeed returns a copy of g using seed. A nil seed leaves g unchanged.
func (g GenerationConfig) WithSeed(seed *int) GenerationConfig {
	if seed != nil {
		s := *seed
		g.Seed = &s
	}
	return g
}

// Validate checks parameter ranges
func (g GenerationConfig) Validate() error {
	switch {
	case g.MaxNewTokens < 1 || g.MaxNewTokens > 1024:
		return fmt.Errorf("max_new_tokens must be in [1, 1024], got %d", g.MaxNewTokens)
	case g.DoSample && (g.Temperature < 0.1 || g.Temperature > 5.0):
		return fmt.Errorf("temperature must be in [0.1, 5.0], got %g", g.Temperature)
	case g.TopP <= 0 || g.TopP > 1.0:
		return fmt.Errorf("top_p must be in (0, 1], got %g", g.TopP)
	case g.TopK < 0 || g.TopK > 1000:
		return fmt.Errorf("top_k must be in [0, 1000], got %d", g.TopK)
	case g.NumBeams < 1 || g.NumBeams > 10:
		return fmt.Errorf("num_beams must be in [1, 10], got %d", g.NumBeams)
	case g.Seed != nil && (*g.Seed < 0 || int64(*g.Seed) > MaxSeed):
		return fmt.Errorf("seed must be in [0, %d], got %d", int64(MaxSeed), *g.Seed)
	}
	return nil
}
