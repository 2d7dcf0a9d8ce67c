// Package pipeline runs a model family's generation stages over one input and
// assembles the upsampled tag list.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kris-hansen/tagup/utils/classify"
	"github.com/kris-hansen/tagup/utils/extract"
	"github.com/kris-hansen/tagup/utils/models"
	"github.com/kris-hansen/tagup/utils/tags"
	"github.com/kris-hansen/tagup/utils/template"
)

// StageGenerate names the only stage of single-stage families
const StageGenerate = "generate"

// Input is one upsampling request
type Input struct {
	// Text is the tag list, or the natural-language prompt for
	// encoder-decoder families. It is also the source of "auto" ratings.
	Text string        `json:"text"`
	Mode classify.Mode `json:"-"`
	// Configs holds the axis choices per template name. Missing templates use
	// their defaults.
	Configs map[string]template.Config `json:"configs,omitempty"`
	// Generation is the sampling configuration. A zero value selects
	// models.DefaultGenerationConfig.
	Generation models.GenerationConfig `json:"generation_config"`
	// Seed, when set, is applied to every stage
	Seed     *int   `json:"seed,omitempty"`
	BanTags  string `json:"ban_tags,omitempty"`
	Negative string `json:"negative_prompt,omitempty"`
}

// Result is the outcome of a run
type Result struct {
	// AllTags joins every non-empty tag group
	AllTags string `json:"all_tags"`
	// TranslatedTags is AllTags without the extension (multi-stage only)
	TranslatedTags string `json:"translated_tags,omitempty"`
	ExtensionTags  string `json:"extension_tags,omitempty"`
	// GeneratedTags is the new text of a single-stage run
	GeneratedTags string `json:"generated_tags,omitempty"`

	Copyright   string `json:"copyright"`
	Character   string `json:"character"`
	Translation string `json:"translation,omitempty"`
	Condition   string `json:"condition,omitempty"`

	// Raw is the last stage's output with special tokens kept
	Raw    string          `json:"raw"`
	Parse  classify.Result `json:"parse"`
	Stages []StageRecord   `json:"stages"`
}

// Orchestrator runs a family's stages. It holds no per-run state and is safe
// for concurrent use when the family is.
type Orchestrator struct {
	family models.Family
	logger *zap.Logger
}

// New creates an orchestrator for family. A nil logger disables logging.
func New(family models.Family, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		family: family,
		logger: logger.With(zap.String("family", string(family.Version()))),
	}
}

// Family returns the family the orchestrator drives
func (o *Orchestrator) Family() models.Family { return o.family }

// Run executes every stage in order. Backend errors are returned wrapped
// with the stage name and stop the run.
func (o *Orchestrator) Run(ctx context.Context, in Input) (*Result, error) {
	gen := in.Generation
	if gen.MaxNewTokens == 0 {
		gen = models.DefaultGenerationConfig()
	}
	seed := in.Seed
	if seed == nil {
		seed = gen.Seed
	}
	if err := gen.WithSeed(seed).Validate(); err != nil {
		return nil, err
	}

	parse := o.family.ParsePrompt(in.Text, in.Mode)
	ban := o.family.EncodeBanTags(in.BanTags)
	stages := o.family.Stages()

	o.logger.Info("starting run",
		zap.Int("stages", len(stages)),
		zap.Int("input_tags", parse.Total()),
		zap.Int("banned_groups", len(ban)))

	state := NewState()
	for i, stage := range stages {
		name := stageName(stage, len(stages))

		var seeded map[string]string
		if len(stages) == 1 {
			seeded = map[string]string{
				"copyright": parse.Copyright,
				"character": parse.Character,
				"condition": parse.Known,
			}
		} else {
			seeded = state.Seeded()
		}

		cfg := template.ResolveRating(in.Configs[stage.Template], func() tags.Rating { return parse.Rating })
		prompt, err := o.family.FormatPrompt(stage.Template, cfg, seeded)
		if err != nil {
			return nil, fmt.Errorf("%s stage: %w", name, err)
		}

		params := gen
		if stage.Greedy {
			params = models.Greedy(gen.MaxNewTokens)
		}
		params = params.WithSeed(seed)

		o.logger.Debug("running stage",
			zap.Int("index", i),
			zap.String("stage", name),
			zap.String("prompt", prompt),
			zap.Bool("greedy", !params.DoSample))

		start := time.Now()
		out, err := o.family.Generate(ctx, models.Request{
			Text:     in.Text,
			Template: prompt,
			Negative: in.Negative,
			Params:   params,
			Ban:      ban,
			Stop:     stage.Stop,
		})
		if err != nil {
			o.logger.Warn("stage failed", zap.String("stage", name), zap.Error(err))
			return nil, fmt.Errorf("%s stage: %w", name, err)
		}

		rec := StageRecord{
			Name:      name,
			Prompt:    prompt,
			Output:    out,
			Extracted: extract.Extract(out.Raw, stage.Extract...),
			Duration:  time.Since(start),
		}
		state.Record(rec)
		o.logger.Debug("stage finished", zap.String("stage", name), zap.Duration("duration", rec.Duration))
	}

	if len(stages) == 1 {
		return assembleSingle(state, parse), nil
	}
	return assembleMulti(state, parse), nil
}

func stageName(stage models.Stage, count int) string {
	if count == 1 || stage.Template == models.DefaultTemplate {
		return StageGenerate
	}
	return stage.Template
}

func assembleSingle(state *State, parse classify.Result) *Result {
	last, _ := state.Last()
	generated := tags.NormalizeTagText(last.Output.New)
	return &Result{
		AllTags:       tags.JoinNonEmpty(tags.Separator, parse.Copyright, parse.Character, parse.Known, generated),
		GeneratedTags: generated,
		Copyright:     parse.Copyright,
		Character:     parse.Character,
		Condition:     parse.Known,
		Raw:           last.Output.Raw,
		Parse:         parse,
		Stages:        state.Stages,
	}
}

func assembleMulti(state *State, parse classify.Result) *Result {
	last, _ := state.Last()
	copyright := state.Get(extract.Copyright.Field)
	character := state.Get(extract.Character.Field)
	translation := state.Get(extract.Translation.Field)
	extension := state.Get(extract.Extension.Field)
	return &Result{
		AllTags:        tags.JoinNonEmpty(tags.Separator, copyright, character, translation, extension),
		TranslatedTags: tags.JoinNonEmpty(tags.Separator, copyright, character, translation),
		ExtensionTags:  extension,
		Copyright:      copyright,
		Character:      character,
		Translation:    translation,
		Raw:            last.Output.Raw,
		Parse:          parse,
		Stages:         state.Stages,
	}
}

// StageConfigs returns a config for every stage template of f: per wins,
// the rest get shared.
func StageConfigs(f models.Family, shared template.Config, per map[string]template.Config) map[string]template.Config {
	out := make(map[string]template.Config, len(per))
	for name, cfg := range per {
		out[name] = cfg
	}
	for _, stage := range f.Stages() {
		if _, ok := out[stage.Template]; !ok {
			out[stage.Template] = shared
		}
	}
	return out
}
