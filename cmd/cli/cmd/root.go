// Package cmd implements the heapquery command line interface.
package cmd

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/heapquery/pkg/config"
	"github.com/heapquery/pkg/telemetry"
	"github.com/heapquery/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configPath string

	cfg    *config.Config
	logger utils.Logger

	telemetryShutdown telemetry.ShutdownFunc
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "heapquery",
	Short: "Query heap snapshots with SQL",
	Long: `heapquery decodes V8 heap snapshot files (.heapsnapshot) into a
relational projection and lets you explore it with plain SQL.

The projection has three tables:
  node(ordinal, id, type, name, self_size, edge_count, trace_node_id)
  edge(from_node, position, type, name_or_index, to_node, from_node_id, to_node_id)
  location(node_ordinal, node_id, script_id, line, column)

By default the projection is persisted to a SQLite file named after the
snapshot (app.heapsnapshot -> app.db3) that any SQLite browser can reopen.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		logLevel := utils.ParseLogLevel(cfg.Log.Level)
		if verbose {
			logLevel = utils.LevelDebug
		}
		if cfg.Log.OutputPath != "" {
			logger, err = utils.NewFileLogger(logLevel, cfg.Log.OutputPath)
			if err != nil {
				return err
			}
		} else {
			logger = utils.NewDefaultLogger(logLevel, os.Stderr)
		}

		// Tracing is opt-in via OTEL_ENABLED=true.
		telemetryShutdown, err = telemetry.Init(cmd.Context())
		if err != nil {
			logger.Warn("Telemetry disabled: %v", err)
		}

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if telemetryShutdown != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return telemetryShutdown(ctx)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("%v", err)
		} else {
			rootCmd.PrintErrln("Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	binName := BinName()
	rootCmd.Example = `  # Run SQL against a snapshot (decodes on first use)
  ` + binName + ` query app.heapsnapshot "select type, count(*) c from node group by type order by c desc"

  # Find the largest objects
  ` + binName + ` query app.heapsnapshot "select name, self_size from node order by self_size desc limit 10"

  # Decode and persist without querying
  ` + binName + ` load app.heapsnapshot`
}

// GetLogger returns the configured logger.
func GetLogger() utils.Logger {
	return logger
}

// BinName returns the base name of the current executable.
func BinName() string {
	return filepath.Base(os.Args[0])
}
