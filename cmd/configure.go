package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kris-hansen/tagup/utils/config"
	"github.com/kris-hansen/tagup/utils/models"
)

const greenCheckmark = "\u2705"

var configureOpts struct {
	list       bool
	remove     string
	setDefault string
	updateKey  string
}

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure models and backends",
	Long: `Add a model to the catalog interactively, or change the configuration
with one of the flags.

A new model needs a version (v1, v2, v2408 or v3) and usually a backend: an
OpenAI-compatible server such as vLLM (kind openai) or a tagup generation
sidecar (kind http). Models served by an openai backend are listed to pick from.`,
	Example: `  # Add a model interactively
  tagup configure

  # Show the configuration
  tagup configure --list

  # Change the default model
  tagup configure --set-default dart-v3

  # Replace a backend's API key
  tagup configure --update-key vllm`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		path := configFile()

		switch {
		case configureOpts.list:
			listConfiguration(w, path, envConfig)
			return nil

		case configureOpts.remove != "":
			if err := envConfig.RemoveModel(configureOpts.remove); err != nil {
				return err
			}
			if err := config.SaveEnvConfig(path, envConfig); err != nil {
				return err
			}
			fmt.Fprintf(w, "%s Removed model %s\n", greenCheckmark, configureOpts.remove)
			return nil

		case configureOpts.setDefault != "":
			if _, err := envConfig.GetModel(configureOpts.setDefault); err != nil {
				return err
			}
			envConfig.DefaultModel = configureOpts.setDefault
			if err := config.SaveEnvConfig(path, envConfig); err != nil {
				return err
			}
			fmt.Fprintf(w, "%s Default model set to %s\n", greenCheckmark, configureOpts.setDefault)
			return nil

		case configureOpts.updateKey != "":
			b, ok := envConfig.Backends[configureOpts.updateKey]
			if !ok {
				return fmt.Errorf("backend %q not found in configuration", configureOpts.updateKey)
			}
			key, err := promptSecret(cmd, bufio.NewReader(cmd.InOrStdin()), "Enter new API key: ")
			if err != nil {
				return err
			}
			b.APIKey = key
			envConfig.Backends[configureOpts.updateKey] = b
			if err := config.SaveEnvConfig(path, envConfig); err != nil {
				return err
			}
			fmt.Fprintf(w, "%s API key updated for backend %s\n", greenCheckmark, configureOpts.updateKey)
			return nil
		}

		reader := bufio.NewReader(cmd.InOrStdin())
		m, err := promptForModel(cmd, reader, envConfig)
		if err != nil {
			return err
		}
		envConfig.Models = append(envConfig.Models, m)
		if envConfig.DefaultModel == "" {
			envConfig.DefaultModel = m.Name
		}
		if err := envConfig.Validate(); err != nil {
			return err
		}
		if err := config.SaveEnvConfig(path, envConfig); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s Model %s (%s) saved to %s\n", greenCheckmark, m.Name, m.Version, path)
		return nil
	},
}

// prompt prints label and returns the trimmed answer, or def when it is empty
func prompt(w io.Writer, reader *bufio.Reader, label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(w, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(w, "%s: ", label)
	}
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

// promptSecret reads a value without echo when stdin is a terminal
func promptSecret(cmd *cobra.Command, reader *bufio.Reader, label string) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.OutOrStdout(), label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("error reading input: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return prompt(cmd.OutOrStdout(), reader, strings.TrimSuffix(strings.TrimSpace(label), ":"), "")
}

func promptForModel(cmd *cobra.Command, reader *bufio.Reader, cfg *config.EnvConfig) (config.ModelConfig, error) {
	w := cmd.OutOrStdout()
	var m config.ModelConfig

	name, err := prompt(w, reader, "Model name", "")
	if err != nil {
		return m, err
	}
	if name == "" {
		return m, fmt.Errorf("model name is required")
	}
	if _, err := cfg.GetModel(name); err == nil {
		return m, fmt.Errorf("model %q already exists, remove it first with --remove", name)
	}
	m.Name = name

	versions := make([]string, 0, len(models.Versions()))
	for _, v := range models.Versions() {
		versions = append(versions, string(v))
	}
	version, err := prompt(w, reader, fmt.Sprintf("Version (%s)", strings.Join(versions, ", ")), string(models.V3))
	if err != nil {
		return m, err
	}
	if !containsString(versions, version) {
		return m, fmt.Errorf("%w: %q", models.ErrUnknownVersion, version)
	}
	m.Version = version

	backendName, err := promptForBackend(cmd, reader, cfg)
	if err != nil {
		return m, err
	}
	m.Backend = backendName

	if backendName != "" {
		remote, err := promptForRemoteModel(cmd, reader, cfg.Backends[backendName])
		if err != nil {
			return m, err
		}
		m.RemoteModel = remote
	}

	if m.Tokenizer, err = prompt(w, reader, "Tokenizer path (tokenizer.json, optional)", ""); err != nil {
		return m, err
	}
	return m, nil
}

// promptForBackend returns an existing backend name, a newly added one, or ""
// for a model without generation.
func promptForBackend(cmd *cobra.Command, reader *bufio.Reader, cfg *config.EnvConfig) (string, error) {
	w := cmd.OutOrStdout()
	if len(cfg.Backends) > 0 {
		fmt.Fprintln(w, "Configured backends:")
		for _, name := range sortedKeys(cfg.Backends) {
			b := cfg.Backends[name]
			fmt.Fprintf(w, "  %s (%s %s)\n", name, b.Kind, b.Endpoint)
		}
	}
	name, err := prompt(w, reader, "Backend name (existing or new, empty for none)", "")
	if err != nil || name == "" {
		return "", err
	}
	if _, ok := cfg.Backends[name]; ok {
		return name, nil
	}

	kind, err := prompt(w, reader, "Backend kind (openai, http)", "openai")
	if err != nil {
		return "", err
	}
	if kind != "openai" && kind != "http" {
		return "", fmt.Errorf("unsupported backend kind %q", kind)
	}
	def := "http://localhost:8000/v1"
	if kind == "http" {
		def = "http://localhost:9000"
	}
	endpoint, err := prompt(w, reader, "Endpoint", def)
	if err != nil {
		return "", err
	}
	key, err := promptSecret(cmd, reader, "API key (optional): ")
	if err != nil {
		return "", err
	}

	if cfg.Backends == nil {
		cfg.Backends = make(map[string]config.BackendConfig)
	}
	cfg.Backends[name] = config.BackendConfig{Kind: kind, Endpoint: endpoint, APIKey: key}
	return name, nil
}

// promptForRemoteModel asks for the model id to request. For openai backends
// the served models are offered as a numbered list when the endpoint answers.
func promptForRemoteModel(cmd *cobra.Command, reader *bufio.Reader, b config.BackendConfig) (string, error) {
	w := cmd.OutOrStdout()
	if b.Kind == "openai" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ids, err := models.NewOpenAIBackend(b, "", nil, logger).ListModels(ctx)
		if err != nil {
			fmt.Fprintf(w, "Could not list models from %s: %v\n", b.Endpoint, err)
		} else if len(ids) > 0 {
			fmt.Fprintln(w, "Available models:")
			for i, id := range ids {
				fmt.Fprintf(w, "%d. %s\n", i+1, id)
			}
			answer, err := prompt(w, reader, fmt.Sprintf("Select a model (1-%d) or enter an id", len(ids)), "1")
			if err != nil {
				return "", err
			}
			return pickModel(answer, ids)
		}
	}
	return prompt(w, reader, "Remote model id", "")
}

// pickModel maps a 1-based selection to an id. Anything that is not a number
// is taken as an id.
func pickModel(answer string, ids []string) (string, error) {
	n, err := strconv.Atoi(answer)
	if err != nil {
		return answer, nil
	}
	if n < 1 || n > len(ids) {
		return "", fmt.Errorf("number %d is out of bounds (1-%d)", n, len(ids))
	}
	return ids[n-1], nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// listConfiguration displays the current configuration
func listConfiguration(w io.Writer, path string, cfg *config.EnvConfig) {
	fmt.Fprintf(w, "Configuration from %s:\n\n", path)
	if cfg.DefaultModel != "" {
		fmt.Fprintf(w, "Default Model: %s\n", cfg.DefaultModel)
	}
	fmt.Fprintf(w, "Tags Directory: %s\n", cfg.TagsDir)
	fmt.Fprintf(w, "Ban Template Directory: %s\n", cfg.BanTemplateDir)
	if cfg.HistoryPath != "" {
		fmt.Fprintf(w, "History: %s\n", cfg.HistoryPath)
	}
	fmt.Fprintf(w, "Server Port: %d\n\n", cfg.Server.Port)

	if len(cfg.Backends) > 0 {
		fmt.Fprintln(w, "Backends:")
		for _, name := range sortedKeys(cfg.Backends) {
			b := cfg.Backends[name]
			fmt.Fprintf(w, "  %s: %s %s", name, b.Kind, b.Endpoint)
			if b.APIKey != "" {
				fmt.Fprint(w, " (api key set)")
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}

	if len(cfg.Models) == 0 {
		fmt.Fprintln(w, "No models configured.")
		return
	}
	fmt.Fprintln(w, "Models:")
	for _, name := range cfg.ModelNames() {
		m, _ := cfg.GetModel(name)
		fmt.Fprintf(w, "  - %s (%s)\n", m.Name, m.Version)
		if m.Backend != "" {
			fmt.Fprintf(w, "    Backend: %s\n", m.Backend)
		}
		if remote := m.Remote(); remote != "" {
			fmt.Fprintf(w, "    Remote: %s\n", remote)
		}
		if m.Tokenizer != "" {
			fmt.Fprintf(w, "    Tokenizer: %s\n", m.Tokenizer)
		}
	}
}

func init() {
	configureCmd.Flags().BoolVar(&configureOpts.list, "list", false, "List the configured backends and models")
	configureCmd.Flags().StringVar(&configureOpts.remove, "remove", "", "Remove a model by name")
	configureCmd.Flags().StringVar(&configureOpts.setDefault, "set-default", "", "Set the default model")
	configureCmd.Flags().StringVar(&configureOpts.updateKey, "update-key", "", "Update the API key of the named backend")
	rootCmd.AddCommand(configureCmd)
}
