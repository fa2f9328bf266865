// Command notegraph serves a git-hosted markdown knowledge base as a
// category tree, a link graph and rendered HTML.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/notegraph/notegraph/internal/config"
	"github.com/notegraph/notegraph/internal/telemetry"
	"github.com/notegraph/notegraph/internal/ui"
)

var (
	cfgFile string
	noColor bool

	v         *viper.Viper
	appConfig *config.Config
	logOutput io.Writer = os.Stderr

	shutdownTracing = func(context.Context) error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "notegraph",
	Short: "Serve a git-hosted markdown notebook as a tree, a graph and HTML",
	Long: `notegraph keeps a local clone of a markdown notes repository in sync,
builds a category tree and a wiki-link graph from it, and serves both along
with rendered notes over HTTP.

Configuration is read from notegraph.{yaml,toml,json} in the working directory
or ~/.config/notegraph, overridden by NOTEGRAPH_* environment variables
(e.g. NOTEGRAPH_REPO_URL) and command-line flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			ui.ForceNoColor()
		} else {
			ui.Setup()
		}

		v = config.New(cfgFile)
		bindFlags(cmd)
		if err := config.Read(v); err != nil {
			return err
		}
		c, err := config.Decode(v)
		if err != nil {
			return err
		}
		appConfig = c

		logOutput = openLog(c.Log)

		shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
			ServiceName:    "notegraph",
			ServiceVersion: Version,
			TraceExporter:  c.Trace.Exporter,
			Writer:         logOutput,
		})
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		shutdownTracing = shutdown
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return shutdownTracing(context.Background())
	},
}

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"repo":         config.KeyRepoURL,
	"branch":       config.KeyRepoBranch,
	"local-path":   config.KeyRepoLocalPath,
	"content-path": config.KeyRepoContentPath,
	"trace":        config.KeyTraceExporter,
}

func bindFlags(cmd *cobra.Command) {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
	if f := cmd.Flags().Lookup("port"); f != nil {
		_ = v.BindPFlag(config.KeyServerPort, f)
	}
}

// openLog returns the destination for all component loggers.
func openLog(c config.LogConfig) io.Writer {
	if c.File == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   c.File,
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAgeDays,
		Compress:   true,
	}
}

// newLogger returns a component logger writing to the configured output.
func newLogger(component string) *log.Logger {
	return log.New(logOutput, "["+component+"] ", log.LstdFlags)
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "content", Title: "Content commands:"},
		&cobra.Group{ID: "admin", Title: "Administration commands:"},
	)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default: ./notegraph.yaml or ~/.config/notegraph/notegraph.yaml)")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")
	flags.String("repo", "", "Notes repository URL")
	flags.String("branch", "", "Branch to track (default: main)")
	flags.String("local-path", "", "Working copy location (default: ./data/notes)")
	flags.String("content-path", "", "Note folder inside the repository (default: study)")
	flags.String("trace", "", "Trace exporter: none or stdout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderError("Error:"), err)
		os.Exit(1)
	}
}
