package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"brickyard/internal/brick"
	"brickyard/internal/config"
	"brickyard/internal/errors"
	"brickyard/internal/executor"
	"brickyard/internal/log"
	"brickyard/internal/pipeline"
	"brickyard/internal/planner"
	"brickyard/internal/provider"
	"brickyard/internal/report"
	"brickyard/internal/resolver"
	"brickyard/internal/verify"
)

var (
	generateContract    string
	generateSpec        string
	generateRefreshPlan bool
	generateForce       bool
	generateModel       string
)

var generateCmd = &cobra.Command{
	Use:   "generate <module-name>",
	Short: "Generate a module from its contract and spec",
	Long: `Generate plans the named module into bricks, then generates and verifies
each brick in order. A stored plan is reused unless --refresh-plan is given.
The summary goes to stdout; failed brick diagnostics go to stderr.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateContract, "contract", "", "path to the module contract document (required)")
	generateCmd.Flags().StringVar(&generateSpec, "spec", "", "path to the module implementation spec (required)")
	generateCmd.Flags().BoolVar(&generateRefreshPlan, "refresh-plan", false, "discard any stored plan and replan")
	generateCmd.Flags().BoolVar(&generateForce, "force", false, "alias for --refresh-plan")
	generateCmd.Flags().StringVar(&generateModel, "model", "", "override the configured model")
	_ = generateCmd.MarkFlagRequired("contract")
	_ = generateCmd.MarkFlagRequired("spec")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	moduleName := args[0]

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	contractText, err := readDocument(generateContract)
	if err != nil {
		return err
	}
	specText, err := readDocument(generateSpec)
	if err != nil {
		return err
	}

	completer, err := newCompleter(cfg)
	if err != nil {
		return err
	}

	p := buildPipeline(completer, cfg, logger)
	rep, err := p.Run(cmd.Context(), moduleName, contractText, specText,
		pipeline.Options{RefreshPlan: generateRefreshPlan || generateForce})
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), report.Render(rep))

	if rep.Outcome() != pipeline.OutcomeFull {
		for _, res := range rep.Failed {
			fmt.Fprintf(cmd.ErrOrStderr(), "brick %s failed: %s\n", res.BrickName, res.ErrorSummary)
		}
		return &runError{outcome: rep.Outcome()}
	}
	return nil
}

// buildPipeline assembles the pipeline components around one completer
func buildPipeline(completer provider.Completer, cfg config.Config, logger *log.Logger) *pipeline.Pipeline {
	store := brick.NewStore(cfg.PlansDir)
	return pipeline.New(
		planner.New(completer, store, cfg, logger),
		resolver.New(completer, cfg, logger),
		executor.New(completer, verify.New(cfg, logger), cfg, logger),
		cfg, logger,
	)
}

func newCompleter(cfg config.Config) (provider.Completer, error) {
	hc := provider.DefaultHTTPConfig()
	hc.DefaultTimeout = cfg.CompletionTimeout
	if generateModel != "" {
		hc.Model = generateModel
	}
	return provider.NewHTTPCompleter(hc)
}

func readDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFileReadFailed, "read document: "+path, err)
	}
	if len(data) == 0 {
		return "", errors.New(errors.ErrCodeFileReadFailed, "document is empty: "+path)
	}
	return string(data), nil
}

// runError carries a non-full outcome out of RunE so main can map it to the
// partial-failure exit code without string matching.
type runError struct {
	outcome pipeline.Outcome
}

func (e *runError) Error() string {
	return fmt.Sprintf("module generation finished with outcome %s", e.outcome)
}

// Outcome exposes the run outcome for exit-code mapping
func (e *runError) Outcome() pipeline.Outcome {
	return e.outcome
}
