package cmd

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kris-hansen/tagup/utils/config"
)

// version is set at build time with -ldflags "-X github.com/kris-hansen/tagup/cmd.version=vX.Y.Z"
var version string

var verbose bool
var debugMode bool
var configPath string

// envConfig holds the loaded configuration, available to all commands
var envConfig *config.EnvConfig

// logger is the process logger built from envConfig.Log
var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "tagup",
	Short: "Upsample danbooru-style tag prompts with language models",
	Long: `Tagup expands a short tag prompt into a richer one by running it through
a tag language model (dart v1, v2, v3 or v2408).

Getting Started:
  1. tagup models             List the configured models
  2. tagup parse "<tags>"     See how your tags are classified
  3. tagup upsample "<tags>"  Generate additional tags

Configuration is read from ~/.tagup/config.yaml (override with TAGUP_CONFIG or --config).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Verbose = verbose
		config.Debug = debugMode

		path := configFile()

		var err error
		envConfig, err = config.LoadEnvConfig(path)
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}

		l, err := config.NewLogger(envConfig.Log)
		if err != nil {
			return fmt.Errorf("error creating logger: %w", err)
		}
		logger = l
		config.SetLogger(l)
		config.DebugLog("Configuration loaded from %s (%d models)", path, len(envConfig.Models))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is $TAGUP_CONFIG or ~/.tagup/config.yaml)")
	rootCmd.AddCommand(versionCmd)
}

// configFile returns the --config path, falling back to TAGUP_CONFIG and the default location
func configFile() string {
	if configPath != "" {
		return configPath
	}
	return config.GetEnvPath()
}

// getVersion returns the version string.
// Priority: build-time ldflags > module version from build info
func getVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "unknown (build with: go build -ldflags \"-X 'github.com/kris-hansen/tagup/cmd.version=vX.Y.Z'\")"
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the current tagup version.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tagup version: %s\n", getVersion())
	},
}

func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.Execute()
	if err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "unknown command") {
			arg := strings.Trim(strings.TrimPrefix(errMsg, "unknown command"), `"`+` for "tagup"`)
			// a bare tag prompt was probably meant for upsample
			if strings.Contains(arg, ",") || strings.Contains(arg, " ") {
				fmt.Fprintf(os.Stderr, "To upsample a prompt, use the 'upsample' command:\n\n   tagup upsample %q\n\n", arg)
			} else {
				fmt.Fprintln(os.Stderr, err)
			}
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
