package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kris-hansen/tagup/utils/tags"
)

var banOpts struct {
	model      string
	templates  []string
	jsonOutput bool
}

var banCmd = &cobra.Command{
	Use:   "ban [tags...]",
	Short: "Compile a ban list into token id groups",
	Long: `Combine inline ban patterns with ban templates and compile them against
the model's vocabulary.

A pattern containing * matches every vocabulary token that fits it; other
patterns ban their exact token. Tags that are not in the vocabulary are
skipped.`,
	Example: `  tagup ban "solo, *hair"
  tagup ban --template nsfw --template text -m dart-v3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inline := ""
		if len(args) > 0 {
			text, err := readText(cmd, args)
			if err != nil {
				return err
			}
			inline = text
		}

		catalog := newCatalog()
		family, m, err := catalog.Get(banOpts.model)
		if err != nil {
			return err
		}
		spec, err := tags.BanList(catalog.Store(), envConfig.BanTemplateDir, inline, banOpts.templates...)
		if err != nil {
			return err
		}
		ids := family.EncodeBanTags(spec)

		w := cmd.OutOrStdout()
		if banOpts.jsonOutput {
			if ids == nil {
				ids = [][]int{}
			}
			return printJSON(w, map[string]interface{}{"model": m.Name, "ban_tags": spec, "bad_words_ids": ids})
		}
		fmt.Fprintf(w, "ban tags: %s\n", spec)
		fmt.Fprintf(w, "token groups: %d (%d ids)\n", len(ids), len(ids.IDs()))
		for _, group := range ids {
			fmt.Fprintln(w, group)
		}
		return nil
	},
}

var banTemplatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the ban templates in ban_template_dir",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := tags.ListBanTemplates(envConfig.BanTemplateDir)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintf(w, "No ban templates in %s\n", envConfig.BanTemplateDir)
			return nil
		}
		for _, n := range names {
			fmt.Fprintln(w, n)
		}
		return nil
	},
}

func init() {
	fs := banCmd.Flags()
	fs.StringVarP(&banOpts.model, "model", "m", "", "model name from the catalog (default is default_model)")
	fs.StringSliceVarP(&banOpts.templates, "template", "t", nil, "ban template name (repeatable)")
	fs.BoolVar(&banOpts.jsonOutput, "json", false, "print the compiled list as JSON")
	banCmd.AddCommand(banTemplatesCmd)
	rootCmd.AddCommand(banCmd)
}
