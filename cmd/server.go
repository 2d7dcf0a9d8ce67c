package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kris-hansen/tagup/utils/config"
	"github.com/kris-hansen/tagup/utils/history"
	"github.com/kris-hansen/tagup/utils/models"
	"github.com/kris-hansen/tagup/utils/server"
)

var serveOpts struct {
	port      int
	noHistory bool
}

var serverCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Run the HTTP API server",
	Long: `Start the tagup HTTP server on the configured port (default: 8088).

Endpoints:
  GET  /health          Health check endpoint
  GET  /v1/models       List the configured models
  POST /v1/upsample     Run a model's pipeline on a tag prompt
  POST /v1/generate     Run one generation call on a preformatted template
  POST /v1/format       Compose a prompt template
  POST /v1/parse        Classify input tags
  POST /v1/aspect       Aspect ratio tag for an image size
  POST /v1/ban          Compile a ban list into token id groups

Every endpoint except /health requires "Authorization: Bearer <token>" when
server.bearerToken is set. Send SIGHUP to reload tag lists and tokenizers.`,
	Example: `  # Start the server
  tagup serve

  # Start on another port with verbose logging
  tagup serve --port 9000 --verbose

  # View current configuration
  tagup serve show`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			envConfig.Server.Port = serveOpts.port
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var journal *history.Journal
		if !serveOpts.noHistory {
			j, err := openJournal(ctx)
			if err != nil {
				logger.Warn("history unavailable, runs will not be recorded", zap.Error(err))
			} else {
				journal = j
				defer journal.Close()
			}
		}

		catalog := newCatalog()
		go reloadOnHangup(ctx, catalog)

		fmt.Fprintf(cmd.OutOrStdout(), "Serving %d models on :%d\n", len(envConfig.Models), envConfig.Server.Port)
		srv := server.New(envConfig, catalog, journal, logger)
		if err := srv.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

var showServerCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current server configuration",
	Long: `Display all server configuration settings including:
  - Port
  - Authentication status
  - CORS configuration`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		s := envConfig.Server

		fmt.Fprintf(w, "Server Configuration:\n")
		fmt.Fprintf(w, "Port: %d\n", s.Port)
		fmt.Fprintf(w, "Authentication Enabled: %v\n", s.BearerToken != "")
		if s.BearerToken != "" {
			fmt.Fprintf(w, "Bearer Token: %s\n", maskToken(s.BearerToken))
		}

		fmt.Fprintf(w, "\nCORS Configuration:\n")
		fmt.Fprintf(w, "Enabled: %v\n", s.CORS.Enabled)
		if s.CORS.Enabled {
			fmt.Fprintf(w, "Allowed Origins: %s\n", strings.Join(s.CORS.AllowedOrigins, ", "))
			fmt.Fprintf(w, "Allowed Methods: %s\n", strings.Join(s.CORS.AllowedMethods, ", "))
			fmt.Fprintf(w, "Allowed Headers: %s\n", strings.Join(s.CORS.AllowedHeaders, ", "))
			fmt.Fprintf(w, "Max Age: %d seconds\n", s.CORS.MaxAge)
		}
	},
}

// reloadOnHangup rebuilds the catalog's families on SIGHUP so edited tag lists
// and tokenizers are picked up without a restart
func reloadOnHangup(ctx context.Context, catalog *models.Catalog) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			n := catalog.Reload()
			config.VerboseLog("Reloaded %d models", n)
		}
	}
}

// maskToken keeps the last four characters of a token
func maskToken(token string) string {
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}

func init() {
	serverCmd.Flags().IntVarP(&serveOpts.port, "port", "p", 0, "port to listen on (default from config)")
	serverCmd.Flags().BoolVar(&serveOpts.noHistory, "no-history", false, "do not record upsample runs")
	serverCmd.AddCommand(showServerCmd)
	rootCmd.AddCommand(serverCmd)
}
