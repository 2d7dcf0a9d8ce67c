package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kris-hansen/tagup/utils/aspect"
)

var aspectOpts struct {
	model  string
	policy string
}

var aspectCmd = &cobra.Command{
	Use:   "aspect <width> <height>",
	Short: "Print the aspect ratio tag for an image size",
	Long: `Classify an image size into an aspect ratio tag such as tall, square or
wide.

With --model the model's own buckets are used. Otherwise --policy picks
linear (v2 buckets) or log2 (v3 and v2408 buckets).`,
	Example: `  tagup aspect 832 1216
  tagup aspect --policy linear 1024 576
  tagup aspect -m dart-v2 512 768`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		width, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid width %q: %w", args[0], err)
		}
		height, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid height %q: %w", args[1], err)
		}

		var tag string
		if aspectOpts.model != "" {
			family, _, err := newCatalog().Get(aspectOpts.model)
			if err != nil {
				return err
			}
			if tag, err = family.AspectRatio(width, height); err != nil {
				return err
			}
		} else {
			policy, err := aspect.ParsePolicy(aspectOpts.policy)
			if err != nil {
				return err
			}
			t, err := aspect.Classify(policy, width, height)
			if err != nil {
				return err
			}
			tag = string(t)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tag)
		return nil
	},
}

func init() {
	aspectCmd.Flags().StringVarP(&aspectOpts.model, "model", "m", "", "use the buckets of this model")
	aspectCmd.Flags().StringVar(&aspectOpts.policy, "policy", "log2", "bucket policy without --model: linear or log2")
	rootCmd.AddCommand(aspectCmd)
}
