// Package cli implements the apidrift command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"apidrift/internal/core/config"

	"github.com/spf13/cobra"
)

const versionString = "0.3.0"

// session is the per-invocation state shared by subcommands once the
// persistent pre-run has loaded the config.
type session struct {
	configPath string
	verbose    bool

	cfg   *config.Config
	paths config.ResolvedPaths
}

// Execute runs the root command against os.Args.
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	rt := &session{}

	cmd := &cobra.Command{
		Use:   "apidrift",
		Short: "Check predicted Python API calls against versioned library signatures",
		Long: `apidrift classifies model-predicted Python call statements against the
ground truth and the API signatures of the pinned library version.

Commands:
  scan      Build the signature knowledge base from versioned package sources
  diff      Show per-version API additions and removals
  classify  Classify a single prediction
  eval      Classify a JSONL task batch and write the evaluation report
  deps      List the dependencies a project declares
  repairs   Export queued repair tasks`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.load(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&rt.configPath, "config", config.DefaultFile, "path to config file")
	cmd.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newScanCmd(rt))
	cmd.AddCommand(newDiffCmd(rt))
	cmd.AddCommand(newClassifyCmd(rt))
	cmd.AddCommand(newEvalCmd(rt))
	cmd.AddCommand(newDepsCmd(rt))
	cmd.AddCommand(newRepairsCmd(rt))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func (rt *session) load(logOutput io.Writer) error {
	cfg, err := config.LoadOrDefault(rt.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", rt.configPath, err)
	}
	config.ApplyEnvOverrides(cfg)

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		return err
	}
	if err := configureLogging(logOutput, cfg.Logging.Level, rt.verbose); err != nil {
		return err
	}

	rt.cfg = cfg
	rt.paths = paths
	slog.Debug("config loaded", "path", rt.configPath, "root", paths.Root)
	return nil
}

func configureLogging(output io.Writer, level string, verbose bool) error {
	logLevel, err := config.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel})))
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the apidrift version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "apidrift %s\n", versionString)
			return err
		},
	}
}
