package models

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kris-hansen/tagup/utils/aspect"
	"github.com/kris-hansen/tagup/utils/classify"
	"github.com/kris-hansen/tagup/utils/template"
	"github.com/kris-hansen/tagup/utils/vocab"
)

// templateSpec is a built-in template and its default values
type templateSpec struct {
	name     string
	text     string
	defaults map[string]string
}

// toolkit implements the behaviour every family shares. Families embed it
// and add their own Generate.
type toolkit struct {
	version    Version
	backend    Backend
	vocab      *vocab.Vocabulary
	classifier *classify.Classifier
	composer   *template.Composer
	stages     []Stage
	policy     aspect.Policy
	logger     *zap.Logger
}

func newToolkit(version Version, deps Deps, tables template.Tables, specs []templateSpec, stages []Stage, policy aspect.Policy) (*toolkit, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("family", string(version)))

	v := deps.Vocabulary
	if v == nil && deps.Backend != nil {
		v = deps.Backend.Vocabulary()
	}

	set := template.NewSet()
	for _, spec := range specs {
		text := spec.text
		if custom, ok := deps.Templates[spec.name]; ok && custom != "" {
			text = custom
		}
		if err := set.Add(spec.name, text, spec.defaults); err != nil {
			return nil, fmt.Errorf("%s: %w", version, err)
		}
	}
	for name := range deps.Templates {
		if _, err := set.Get(name); err != nil {
			logger.Warn("configured template is not used by this family", zap.String("template", name))
		}
	}

	return &toolkit{
		version:    version,
		backend:    deps.Backend,
		vocab:      v,
		classifier: classify.New(deps.Copyright, deps.Character, v, logger),
		composer:   template.NewComposer(tables, set),
		stages:     stages,
		policy:     policy,
		logger:     logger,
	}, nil
}

func (t *toolkit) Version() Version { return t.version }

func (t *toolkit) Templates() *template.Set { return t.composer.Set() }

func (t *toolkit) Tables() template.Tables { return t.composer.Tables() }

func (t *toolkit) Stages() []Stage {
	return append([]Stage(nil), t.stages...)
}

func (t *toolkit) FormatPrompt(name string, cfg template.Config, seeded map[string]string) (string, error) {
	return t.composer.Compose(name, cfg, seeded)
}

func (t *toolkit) ParsePrompt(text string, mode classify.Mode) classify.Result {
	return t.classifier.Parse(text, mode)
}

func (t *toolkit) EncodeBanTags(spec string) vocab.BanSpec {
	if spec != "" && t.vocab == nil {
		t.logger.Warn("no vocabulary loaded, ban tags ignored")
	}
	return vocab.CompileBanSpec(spec, t.vocab)
}

func (t *toolkit) AspectRatio(width, height int) (string, error) {
	if t.policy == nil {
		return "", fmt.Errorf("%s has no aspect ratio axis", t.version)
	}
	tag, err := aspect.Classify(t.policy, width, height)
	if err != nil {
		return "", err
	}
	if table, ok := t.Tables()[template.AxisAspectRatio]; !ok || !table.Has(string(tag)) {
		return "", fmt.Errorf("%w: %s has no %q aspect ratio", template.ErrUnknownEnumValue, t.version, tag)
	}
	return string(tag), nil
}

// send forwards req to the backend
func (t *toolkit) send(ctx context.Context, req Request) (Output, error) {
	if t.backend == nil {
		return Output{}, fmt.Errorf("%s: %w", t.version, ErrBackendNotConfigured)
	}
	return t.backend.Generate(ctx, req)
}

// decoderOnly adapts a request for models without an encoder
func (t *toolkit) decoderOnly(req Request, negative bool) Request {
	if req.Text != "" {
		t.logger.Debug("decoder-only model, encoder text ignored")
		req.Text = ""
	}
	if !negative && req.Negative != "" {
		t.logger.Debug("negative prompt not supported, ignored")
		req.Negative = ""
	}
	return req
}
