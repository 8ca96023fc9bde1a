// Package cmd wires the brickyard CLI.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"brickyard/internal/config"
	"brickyard/internal/log"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "brickyard",
	Short: "LLM-driven module generation pipeline",
	Long: `brickyard turns a module contract and implementation spec into working
code: it plans the module as an ordered list of bricks, generates each brick
through an LLM session, verifies the result, and retries failed bricks with
the verifier's diagnostics as corrective feedback.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteContext runs the root command with the given context
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// loadConfig builds the run configuration and logger from flags
func loadConfig() (config.Config, *log.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, nil, err
	}
	if verbose {
		cfg.Verbose = true
	}

	logCfg := log.DefaultConfig()
	if cfg.Verbose {
		logCfg.Level = log.LevelDebug
	}
	logger := log.New(logCfg)
	log.SetDefaultLogger(logger)

	return cfg, logger, nil
}
