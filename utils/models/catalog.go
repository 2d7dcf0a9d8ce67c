package models

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kris-hansen/tagup/utils/config"
	"github.com/kris-hansen/tagup/utils/tags"
	"github.com/kris-hansen/tagup/utils/vocab"
)

// Catalog builds families from the configured model entries and keeps them
// for reuse. It is safe for concurrent use.
type Catalog struct {
	cfg    *config.EnvConfig
	store  *tags.Store
	logger *zap.Logger

	mu       sync.Mutex
	families map[string]Family
}

// NewCatalog creates a catalog over cfg. Tag lists are read through store.
func NewCatalog(cfg *config.EnvConfig, store *tags.Store, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = tags.NewStore(logger)
	}
	return &Catalog{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		families: make(map[string]Family),
	}
}

// Config returns the configuration the catalog was built from
func (c *Catalog) Config() *config.EnvConfig { return c.cfg }

// Store returns the tag list store
func (c *Catalog) Store() *tags.Store { return c.store }

// Get returns the family for the named model, building it on first use. An
// empty name selects the default model.
func (c *Catalog) Get(name string) (Family, config.ModelConfig, error) {
	m, err := c.cfg.GetModel(name)
	if err != nil {
		return nil, config.ModelConfig{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.families[m.Name]; ok {
		return f, m, nil
	}

	f, err := c.build(m)
	if err != nil {
		return nil, m, fmt.Errorf("model %q: %w", m.Name, err)
	}
	c.families[m.Name] = f
	return f, m, nil
}

// Reload drops every built family and cached tag list, so the next Get reads
// tokenizers and tag lists again. It returns the number of families dropped.
func (c *Catalog) Reload() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.families)
	c.families = make(map[string]Family)
	c.store.Flush()
	c.logger.Info("catalog reloaded", zap.Int("families", n))
	return n
}

func (c *Catalog) build(m config.ModelConfig) (Family, error) {
	logger := c.logger.With(zap.String("model", m.Name))

	var v *vocab.Vocabulary
	if m.Tokenizer != "" {
		var err error
		v, err = vocab.LoadTokenizerJSON(m.Tokenizer)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded vocabulary", zap.Int("tokens", v.Len()))
	} else {
		logger.Warn("no tokenizer configured, tags will not be checked against a vocabulary")
	}

	backend, err := c.backendFor(m, v, logger)
	if err != nil {
		return nil, err
	}

	copyrightPath, characterPath, err := c.cfg.TagListPaths(m.Version)
	if err != nil {
		return nil, err
	}
	copyright, err := c.store.LoadOptional(copyrightPath)
	if err != nil {
		return nil, err
	}
	character, err := c.store.LoadOptional(characterPath)
	if err != nil {
		return nil, err
	}

	return New(Version(m.Version), Deps{
		Backend:    backend,
		Vocabulary: v,
		Copyright:  copyright,
		Character:  character,
		Templates:  c.cfg.TemplatesFor(m),
		Logger:     logger,
	})
}

func (c *Catalog) backendFor(m config.ModelConfig, v *vocab.Vocabulary, logger *zap.Logger) (Backend, error) {
	if m.Backend == "" {
		return nil, nil
	}
	bc, ok := c.cfg.GetBackend(m)
	if !ok {
		return nil, fmt.Errorf("unknown backend %q", m.Backend)
	}
	switch bc.Kind {
	case "openai":
		return NewOpenAIBackend(bc, m.Remote(), v, logger), nil
	case "http":
		return NewHTTPBackend(bc, m.Remote(), v, logger), nil
	default:
		return nil, fmt.Errorf("unsupported backend kind %q", bc.Kind)
	}
}
