package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kris-hansen/tagup/utils/config"
	"github.com/kris-hansen/tagup/utils/display"
	"github.com/kris-hansen/tagup/utils/models"
)

var checkBackends bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the configured models",
	Long: `List the model catalog from the configuration file with each model's
version, backend and tokenizer. The default model is marked with *.

With --check every backend is contacted once: http sidecars through their
/health endpoint, openai backends by listing their models.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		styler := display.NewStyler(w)
		if len(envConfig.Models) == 0 {
			fmt.Fprintln(w, styler.Warning("No models configured. Add a models section to "+configFile()))
			return nil
		}

		headers := []string{"NAME", "VERSION", "REMOTE", "BACKEND", "TOKENIZER"}
		if checkBackends {
			headers = append(headers, "STATUS")
		}
		status := make(map[string]string)

		rows := make([][]string, 0, len(envConfig.Models))
		for _, name := range envConfig.ModelNames() {
			m, err := envConfig.GetModel(name)
			if err != nil {
				return err
			}
			marker := ""
			if m.Name == envConfig.DefaultModel {
				marker = "*"
			}
			backend := m.Backend
			if b, ok := envConfig.GetBackend(m); ok {
				backend = fmt.Sprintf("%s (%s %s)", m.Backend, b.Kind, b.Endpoint)
			} else if backend == "" {
				backend = "-"
			}
			row := []string{marker + m.Name, m.Version, m.Remote(), backend, m.Tokenizer}
			if checkBackends {
				b, ok := envConfig.GetBackend(m)
				if !ok {
					row = append(row, "-")
				} else {
					if _, seen := status[m.Backend]; !seen {
						status[m.Backend] = backendStatus(cmd.Context(), m.Backend, b)
					}
					row = append(row, status[m.Backend])
				}
			}
			rows = append(rows, row)
		}
		fmt.Fprint(w, styler.Table(headers, rows))
		return nil
	},
}

// backendStatus reports "ok" or "unreachable" for one backend
func backendStatus(ctx context.Context, name string, b config.BackendConfig) string {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var err error
	switch b.Kind {
	case "http":
		err = models.NewHTTPBackend(b, "", nil, logger).Ping(ctx)
	default:
		_, err = models.NewOpenAIBackend(b, "", nil, logger).ListModels(ctx)
	}
	if err != nil {
		logger.Warn("backend check failed", zap.String("backend", name), zap.Error(err))
		return "unreachable"
	}
	return "ok"
}

var modelsVersionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List the supported model versions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, v := range models.Versions() {
			fmt.Fprintln(cmd.OutOrStdout(), v)
		}
	},
}

func init() {
	modelsCmd.Flags().BoolVar(&checkBackends, "check", false, "contact each backend and report its status")
	modelsCmd.AddCommand(modelsVersionsCmd)
	rootCmd.AddCommand(modelsCmd)
}
