package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kris-hansen/tagup/utils/models"
	"github.com/kris-hansen/tagup/utils/template"
)

var formatOpts struct {
	model    string
	template string
	values   map[string]string
	list     bool
	describe bool
	tmpl     templateFlags
}

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Compose a model's prompt template without generating",
	Long: `Fill a model's prompt template from the template axes and print it.

Seed values such as condition, copyright or character are passed with
--value. Without --template the template of the model's first stage is used.`,
	Example: `  # v3 prompt for a tall image
  tagup format -m dart-v3 --rating general --aspect-ratio tall --length long --value condition="1girl, solo"

  # List a model's templates
  tagup format -m dart-v2408 --list

  # Show the fields, allowed values and defaults of a template
  tagup format -m dart-v3 -t sft --describe`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		family, _, err := newCatalog().Get(formatOpts.model)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()

		if formatOpts.list {
			for _, n := range family.Templates().Names() {
				fmt.Fprintln(w, n)
			}
			return nil
		}

		name := formatOpts.template
		if name == "" {
			name = family.Stages()[0].Template
		}
		if formatOpts.describe {
			return describeTemplate(w, family, name)
		}

		cfg := formatOpts.tmpl.apply(template.Config{})
		if tmpl, err := family.Templates().Get(name); err == nil {
			for key := range cfg.Overrides {
				if !tmpl.Uses(key) {
					logger.Warn("override not used by template", zap.String("key", key), zap.String("template", name))
				}
			}
		}
		prompt, err := family.FormatPrompt(name, cfg, formatOpts.values)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, prompt)
		return nil
	},
}

// describeTemplate prints a template's source and, per field, the allowed
// values of axis fields and the default
func describeTemplate(w io.Writer, family models.Family, name string) error {
	set := family.Templates()
	tmpl, err := set.Get(name)
	if err != nil {
		return err
	}
	defaults, err := set.Defaults(name)
	if err != nil {
		return err
	}
	tables := family.Tables()

	fmt.Fprintf(w, "%s: %s\n", name, tmpl)
	for _, field := range tmpl.Fields() {
		line := "  " + field
		if tables.IsAxis(field) {
			line += ": " + strings.Join(tables[field].Keys(), ", ")
		}
		if d, ok := defaults[field]; ok && d != "" {
			line += fmt.Sprintf(" (default %s)", d)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func init() {
	fs := formatCmd.Flags()
	fs.StringVarP(&formatOpts.model, "model", "m", "", "model name from the catalog (default is default_model)")
	fs.StringVarP(&formatOpts.template, "template", "t", "", "template name (see --list)")
	fs.StringToStringVar(&formatOpts.values, "value", nil, "seed a template field, e.g. --value condition=\"1girl\"")
	fs.BoolVar(&formatOpts.list, "list", false, "list the model's template names")
	fs.BoolVar(&formatOpts.describe, "describe", false, "describe the template's fields instead of composing it")
	formatOpts.tmpl.register(fs)
	rootCmd.AddCommand(formatCmd)
}
