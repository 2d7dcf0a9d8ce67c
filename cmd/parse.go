package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kris-hansen/tagup/utils/classify"
	"github.com/kris-hansen/tagup/utils/display"
)

var parseOpts struct {
	model      string
	mode       string
	jsonOutput bool
}

var parseCmd = &cobra.Command{
	Use:   "parse [tags...]",
	Short: "Classify input tags against a model's tag lists and vocabulary",
	Long: `Split a tag prompt and sort every tag into copyright, character, known
or unknown, and estimate the content rating from the unknown tags.

Special tokens such as <|bos|> are dropped and reported.`,
	Example: `  tagup parse "vocaloid, hatsune miku, 1girl, my custom tag"
  echo "(1girl:1.2), [solo]" | tagup parse --mode brackets`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readText(cmd, args)
		if err != nil {
			return err
		}
		mode, err := classify.ParseMode(parseOpts.mode)
		if err != nil {
			return err
		}
		family, _, err := newCatalog().Get(parseOpts.model)
		if err != nil {
			return err
		}

		res := family.ParsePrompt(text, mode)
		w := cmd.OutOrStdout()
		if parseOpts.jsonOutput {
			return printJSON(w, res)
		}
		fmt.Fprintln(w, display.NewStyler(w).Parse(res))
		return nil
	},
}

func init() {
	fs := parseCmd.Flags()
	fs.StringVarP(&parseOpts.model, "model", "m", "", "model name from the catalog (default is default_model)")
	fs.StringVar(&parseOpts.mode, "mode", "", "input split mode: comma or brackets")
	fs.BoolVar(&parseOpts.jsonOutput, "json", false, "print the classification as JSON")
	rootCmd.AddCommand(parseCmd)
}
