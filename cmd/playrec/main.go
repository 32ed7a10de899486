// Package main provides the playrec binary: a client for the browser test
// recording and execution backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ormasoftchile/playrec/pkg/api"
	"github.com/ormasoftchile/playrec/pkg/config"
	"github.com/ormasoftchile/playrec/pkg/execution"
	"github.com/ormasoftchile/playrec/pkg/logging"
	pmcp "github.com/ormasoftchile/playrec/pkg/mcp"
	"github.com/ormasoftchile/playrec/pkg/render"
	"github.com/ormasoftchile/playrec/pkg/shell"
	"github.com/ormasoftchile/playrec/pkg/tui"
	"github.com/ormasoftchile/playrec/pkg/workbench"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Global flags.
var (
	flagConfig   string
	flagBaseURL  string
	flagProject  string
	flagLogLevel string
)

// Resolved in PersistentPreRunE.
var (
	cfg    *config.Config
	logger = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var r reportedError
		if !errors.As(err, &r) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// reportedError marks an error the renderer already showed.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err: err}
}

var rootCmd = &cobra.Command{
	Use:           "playrec",
	Short:         "Record and execute browser tests",
	Long:          "playrec drives a browser test backend: organize projects, record test cases in a real browser, and execute them with readable failure diagnostics.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(".env"); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
		c, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("base-url") {
			c.BaseURL = flagBaseURL
		}
		if cmd.Flags().Changed("log-level") {
			c.LogLevel = flagLogLevel
		}
		l, err := logging.New(c.LogLevel, c.LogFile)
		if err != nil {
			return err
		}
		cfg, logger = c, l
		logger.Debug("config loaded", zap.String("base_url", cfg.BaseURL), zap.String("favorable_when", cfg.Favorable.String()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// newWorkbench wires a workbench against the configured backend, with the
// --project flag applied as the selection.
func newWorkbench(ctx context.Context, r render.Renderer) *workbench.Workbench {
	client := api.New(cfg.BaseURL, cfg.Timeout)
	wb := workbench.New(client, r, workbench.Options{
		ResetDelay: cfg.ResetDelay,
		Favorable:  cfg.Favorable,
		Logger:     logger,
		Context:    ctx,
	})
	if flagProject != "" {
		wb.State().SelectProject(flagProject)
	}
	return wb
}

func textRenderer() render.Renderer {
	return render.NewText(os.Stdout, os.Stderr)
}

// --- shell ---

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive workbench shell",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wb := newWorkbench(cmd.Context(), textRenderer())
		defer wb.Close()
		return shell.New(wb).Run(cmd.Context())
	},
}

// --- tui ---

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the terminal user interface",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sink := tui.NewSink()
		wb := newWorkbench(cmd.Context(), sink)
		defer wb.Close()
		return tui.Run(cmd.Context(), wb, sink)
	},
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the workbench as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := api.New(cfg.BaseURL, cfg.Timeout)
		d := execution.New(client, render.Nop{}, execution.Config{
			ResetDelay: cfg.ResetDelay,
			Favorable:  cfg.Favorable,
			Logger:     logger,
		})
		defer d.Close()
		return pmcp.Serve(pmcp.NewServer(version, client, d))
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := config.GenerateJSONSchema()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "base_url:       %s\n", cfg.BaseURL)
		fmt.Fprintf(out, "timeout:        %s\n", cfg.Timeout)
		fmt.Fprintf(out, "reset_delay:    %s\n", cfg.ResetDelay)
		fmt.Fprintf(out, "favorable_when: %s\n", cfg.Favorable)
		fmt.Fprintf(out, "log_level:      %s\n", cfg.LogLevel)
		if cfg.LogFile != "" {
			fmt.Fprintf(out, "log_file:       %s\n", cfg.LogFile)
		}
	},
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "playrec %s (%s)\n", version, commit)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	pf.StringVar(&flagBaseURL, "base-url", "", "Backend root URL (overrides config and "+config.EnvBaseURL+")")
	pf.StringVarP(&flagProject, "project", "p", "", "Project to operate on")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error, or off")

	configCmd.AddCommand(configSchemaCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
