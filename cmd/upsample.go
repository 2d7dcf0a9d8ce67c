package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kris-hansen/tagup/utils/classify"
	"github.com/kris-hansen/tagup/utils/config"
	"github.com/kris-hansen/tagup/utils/display"
	"github.com/kris-hansen/tagup/utils/history"
	"github.com/kris-hansen/tagup/utils/models"
	"github.com/kris-hansen/tagup/utils/pipeline"
	"github.com/kris-hansen/tagup/utils/tags"
)

type upsampleOptions struct {
	model        string
	mode         string
	preset       string
	banTags      string
	banTemplates []string
	negative     string
	jsonOutput   bool
	noHistory    bool
	escape       bool
	tmpl         templateFlags
	gen          generationFlags
}

var upsampleOpts upsampleOptions

var upsampleCmd = &cobra.Command{
	Use:     "upsample [tags...]",
	Aliases: []string{"pipeline"},
	Short:   "Expand a tag prompt with the configured model",
	Long: `Run the model's pipeline on a comma separated tag prompt and print the
upsampled tags.

Single-stage models (v1, v2, v3) generate general tags from the input. The
v2408 model first translates the input into tags and then extends them.
Tags are read from the arguments, or from stdin when none are given.`,
	Example: `  # Upsample with the default model
  tagup upsample "1girl, solo, hatsune miku"

  # Pick a model and fix the template axes
  tagup upsample -m dart-v3 --rating auto --aspect-ratio tall --length long "1girl, solo"

  # Strip emphasis syntax and ban tags
  tagup upsample --mode brackets --ban "*hair, solo" "(1girl:1.2), [smile]"

  # Reuse settings from a YAML preset
  tagup upsample --preset ~/.tagup/presets/portrait.yaml "1girl"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readText(cmd, args)
		if err != nil {
			return err
		}
		return runUpsample(cmd, text, &upsampleOpts)
	},
}

func runUpsample(cmd *cobra.Command, text string, opts *upsampleOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	preset, err := loadPreset(opts.preset)
	if err != nil {
		return err
	}
	modelName := opts.model
	if modelName == "" {
		modelName = preset.Model
	}
	modeName := opts.mode
	if modeName == "" {
		modeName = preset.Mode
	}
	mode, err := classify.ParseMode(modeName)
	if err != nil {
		return err
	}

	catalog := newCatalog()
	family, m, err := catalog.Get(modelName)
	if err != nil {
		return err
	}

	base := models.DefaultGenerationConfig()
	if preset.Generation != nil {
		base = *preset.Generation
	}
	fs := cmd.Flags()
	gen := opts.gen.resolve(fs, base)
	if err := gen.Validate(); err != nil {
		return err
	}

	inline := opts.banTags
	if inline == "" {
		inline = preset.BanTags
	}
	ban, err := tags.BanList(catalog.Store(), envConfig.BanTemplateDir, inline, opts.banTemplates...)
	if err != nil {
		return err
	}
	negative := opts.negative
	if negative == "" {
		negative = preset.Negative
	}

	in := pipeline.Input{
		Text:       text,
		Mode:       mode,
		Configs:    pipeline.StageConfigs(family, opts.tmpl.apply(preset.Config), preset.Configs),
		Generation: gen,
		Seed:       opts.gen.seedFlag(fs),
		BanTags:    ban,
		Negative:   negative,
	}

	config.VerboseLog("Upsampling with model %s (%s)", m.Name, family.Version())

	spinner := newSpinner(cmd)
	spinner.Start(fmt.Sprintf("Generating with %s", m.Name))
	start := time.Now()
	res, runErr := pipeline.New(family, logger).Run(ctx, in)
	elapsed := time.Since(start)
	spinner.Stop()

	if !opts.noHistory {
		recordRun(ctx, m, in, res, elapsed, runErr)
	}
	if runErr != nil {
		return runErr
	}

	if opts.escape {
		escapeResult(res)
	}
	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		return printJSON(out, res)
	}
	fmt.Fprint(out, display.NewStyler(out).Result(res, verbose))
	return nil
}

// escapeResult rewrites the tag fields for image prompts, where bare
// parentheses mean emphasis.
func escapeResult(res *pipeline.Result) {
	for _, field := range []*string{
		&res.AllTags, &res.TranslatedTags, &res.ExtensionTags, &res.GeneratedTags,
		&res.Copyright, &res.Character,
	} {
		*field = tags.EscapeBrackets(*field)
	}
}

func recordRun(ctx context.Context, m config.ModelConfig, in pipeline.Input, res *pipeline.Result, d time.Duration, runErr error) {
	journal, err := openJournal(ctx)
	if err != nil {
		logger.Warn("history unavailable", zap.Error(err))
		return
	}
	defer journal.Close()

	seed := in.Seed
	if seed == nil {
		seed = in.Generation.Seed
	}
	e := history.Entry{
		Model:    m.Name,
		Version:  m.Version,
		Input:    in.Text,
		Seed:     seed,
		Duration: d,
	}
	if res != nil {
		e.AllTags = res.AllTags
		e.Raw = res.Raw
	}
	if runErr != nil {
		e.Error = runErr.Error()
	}
	id, err := journal.Record(context.WithoutCancel(ctx), e)
	if err != nil {
		logger.Warn("failed to record run", zap.Error(err))
		return
	}
	config.DebugLog("Recorded run %s", id)
}

func init() {
	fs := upsampleCmd.Flags()
	fs.StringVarP(&upsampleOpts.model, "model", "m", "", "model name from the catalog (default is default_model)")
	fs.StringVar(&upsampleOpts.mode, "mode", "", "input split mode: comma or brackets")
	fs.StringVar(&upsampleOpts.preset, "preset", "", "YAML file with model, config, configs and generation_config")
	fs.StringVar(&upsampleOpts.banTags, "ban", "", "comma separated tags to ban, * wildcards allowed")
	fs.StringSliceVar(&upsampleOpts.banTemplates, "ban-template", nil, "ban template name from ban_template_dir (repeatable)")
	fs.StringVar(&upsampleOpts.negative, "negative", "", "negative prompt")
	fs.BoolVar(&upsampleOpts.jsonOutput, "json", false, "print the full result as JSON")
	fs.BoolVar(&upsampleOpts.escape, "escape", false, `escape parentheses in the output tags as \( and \)`)
	fs.BoolVar(&upsampleOpts.noHistory, "no-history", false, "do not record the run in the history journal")
	upsampleOpts.tmpl.register(fs)
	upsampleOpts.gen.register(fs)
	rootCmd.AddCommand(upsampleCmd)
}
