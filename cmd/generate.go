package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kris-hansen/tagup/utils/config"
	"github.com/kris-hansen/tagup/utils/models"
	"github.com/kris-hansen/tagup/utils/server"
)

var generateOpts struct {
	model      string
	text       string
	stop       string
	banTags    string
	output     string
	jsonOutput bool
	gen        generationFlags
}

var generateCmd = &cobra.Command{
	Use:   "generate \"<template>\"",
	Short: "Run one generation call on a preformatted template",
	Long: `Send a prompt template to the model's backend as-is and print what it
generates. Use 'tagup format' to build a template for a model.

Generation stops at </general> unless --stop names another token.`,
	Example: `  # Continue a v3 prompt
  tagup generate -m dart-v3 "<|bos|><copyright></copyright><character></character><|rating:general|><|aspect_ratio:tall|><|length:long|><general>1girl<|identity:none|><|input_end|>"

  # Print the raw output with special tokens
  tagup generate --output raw --seed 42 "$(tagup format -m dart-v3)"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		family, m, err := newCatalog().Get(generateOpts.model)
		if err != nil {
			return err
		}

		fs := cmd.Flags()
		params := generateOpts.gen.resolve(fs, models.DefaultGenerationConfig()).WithSeed(generateOpts.gen.seedFlag(fs))
		if err := params.Validate(); err != nil {
			return err
		}
		stop := generateOpts.stop
		if stop == "" {
			stop = server.DefaultStop
		}

		config.DebugLog("Generate: model=%s, template_length=%d, stop=%s", m.Name, len(args[0]), stop)

		spinner := newSpinner(cmd)
		spinner.Start(fmt.Sprintf("Generating with %s", m.Name))
		out, err := family.Generate(ctx, models.Request{
			Text:     generateOpts.text,
			Template: args[0],
			Params:   params,
			Ban:      family.EncodeBanTags(generateOpts.banTags),
			Stop:     stop,
		})
		spinner.Stop()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if generateOpts.jsonOutput {
			return printJSON(w, out)
		}
		switch generateOpts.output {
		case "", "new":
			fmt.Fprintln(w, out.New)
		case "full":
			fmt.Fprintln(w, out.Full)
		case "raw":
			fmt.Fprintln(w, out.Raw)
		default:
			return fmt.Errorf("unknown output %q (want new, full or raw)", generateOpts.output)
		}
		return nil
	},
}

func init() {
	fs := generateCmd.Flags()
	fs.StringVarP(&generateOpts.model, "model", "m", "", "model name from the catalog (default is default_model)")
	fs.StringVar(&generateOpts.text, "text", "", "encoder input text for encoder-decoder models")
	fs.StringVar(&generateOpts.stop, "stop", "", "stop token (default </general>)")
	fs.StringVar(&generateOpts.banTags, "ban", "", "comma separated tags to ban, * wildcards allowed")
	fs.StringVar(&generateOpts.output, "output", "new", "which text to print: new, full or raw")
	fs.BoolVar(&generateOpts.jsonOutput, "json", false, "print new, full and raw as JSON")
	generateOpts.gen.register(fs)
	rootCmd.AddCommand(generateCmd)
}
