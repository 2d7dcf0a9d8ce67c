package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/kris-hansen/tagup/utils/config"
	"github.com/kris-hansen/tagup/utils/display"
	"github.com/kris-hansen/tagup/utils/fileutil"
	"github.com/kris-hansen/tagup/utils/history"
	"github.com/kris-hansen/tagup/utils/models"
	"github.com/kris-hansen/tagup/utils/tags"
	"github.com/kris-hansen/tagup/utils/template"
)

func newCatalog() *models.Catalog {
	return models.NewCatalog(envConfig, tags.NewStore(logger), logger)
}

// newSpinner writes to the command's stderr. It stays off while console
// logging is verbose so log lines are not overwritten.
func newSpinner(cmd *cobra.Command) *display.Spinner {
	s := display.NewSpinnerTo(cmd.ErrOrStderr())
	if config.Verbose || config.Debug {
		s.Disable()
	}
	return s
}

func openJournal(ctx context.Context) (*history.Journal, error) {
	path := envConfig.HistoryPath
	if path == "" {
		path = history.DefaultPath()
	}
	return history.Open(ctx, path)
}

// readText joins the positional arguments, or reads stdin when there are
// none or the only argument is "-".
func readText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, ", "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no input tags given")
	}
	return text, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// generationFlags binds the sampling parameters. Only flags that were set on
// the command line replace the base values.
type generationFlags struct {
	maxNewTokens int
	greedy       bool
	temperature  float64
	topP         float64
	topK         int
	numBeams     int
	seed         int
}

func (g *generationFlags) register(fs *pflag.FlagSet) {
	def := models.DefaultGenerationConfig()
	fs.IntVar(&g.maxNewTokens, "max-new-tokens", def.MaxNewTokens, "maximum number of generated tokens")
	fs.BoolVar(&g.greedy, "greedy", false, "disable sampling")
	fs.Float64Var(&g.temperature, "temperature", def.Temperature, "sampling temperature")
	fs.Float64Var(&g.topP, "top-p", def.TopP, "nucleus sampling probability")
	fs.IntVar(&g.topK, "top-k", def.TopK, "top-k sampling (0 disables)")
	fs.IntVar(&g.numBeams, "num-beams", def.NumBeams, "beam count")
	fs.IntVar(&g.seed, "seed", 0, "random seed for reproducible sampling")
}

func (g *generationFlags) resolve(fs *pflag.FlagSet, base models.GenerationConfig) models.GenerationConfig {
	if fs.Changed("max-new-tokens") {
		base.MaxNewTokens = g.maxNewTokens
	}
	if fs.Changed("greedy") {
		base.DoSample = !g.greedy
	}
	if fs.Changed("temperature") {
		base.Temperature = g.temperature
	}
	if fs.Changed("top-p") {
		base.TopP = g.topP
	}
	if fs.Changed("top-k") {
		base.TopK = g.topK
	}
	if fs.Changed("num-beams") {
		base.NumBeams = g.numBeams
	}
	return base
}

// seedFlag returns the --seed value, or nil when it was not given
func (g *generationFlags) seedFlag(fs *pflag.FlagSet) *int {
	if !fs.Changed("seed") {
		return nil
	}
	s := g.seed
	return &s
}

// templateFlags binds the enumerated template axes
type templateFlags struct {
	aspectRatio string
	rating      string
	length      string
	identity    string
	set         map[string]string
}

func (t *templateFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&t.aspectRatio, "aspect-ratio", "", "aspect ratio (e.g. tall, square, wide)")
	fs.StringVar(&t.rating, "rating", "", "rating (general, sensitive, questionable, explicit, sfw, nsfw or auto)")
	fs.StringVar(&t.length, "length", "", "length (very_short, short, medium, long, very_long)")
	fs.StringVar(&t.identity, "identity", "", "identity (none, lax, strict)")
	fs.StringToStringVar(&t.set, "set", nil, "override a template field, e.g. --set condition=\"1girl, solo\"")
}

func (t *templateFlags) apply(base template.Config) template.Config {
	if t.aspectRatio != "" {
		base.AspectRatio = t.aspectRatio
	}
	if t.rating != "" {
		base.Rating = t.rating
	}
	if t.length != "" {
		base.Length = t.length
	}
	if t.identity != "" {
		extra := make(map[string]string, len(base.Extra)+1)
		for k, v := range base.Extra {
			extra[k] = v
		}
		extra[template.AxisIdentity] = t.identity
		base.Extra = extra
	}
	if len(t.set) > 0 {
		overrides := make(map[string]string, len(base.Overrides)+len(t.set))
		for k, v := range base.Overrides {
			overrides[k] = v
		}
		for k, v := range t.set {
			overrides[k] = v
		}
		base.Overrides = overrides
	}
	return base
}

// Preset is a YAML file of reusable upsample settings
type Preset struct {
	Model      string                     `yaml:"model,omitempty"`
	Mode       string                     `yaml:"mode,omitempty"`
	Config     template.Config            `yaml:"config,omitempty"`
	Configs    map[string]template.Config `yaml:"configs,omitempty"`
	Generation *models.GenerationConfig   `yaml:"generation_config,omitempty"`
	BanTags    string                     `yaml:"ban_tags,omitempty"`
	Negative   string                     `yaml:"negative_prompt,omitempty"`
}

func loadPreset(path string) (Preset, error) {
	var p Preset
	if path == "" {
		return p, nil
	}
	data, err := fileutil.SafeReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read preset: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse preset %s: %w", path, err)
	}
	return p, nil
}
