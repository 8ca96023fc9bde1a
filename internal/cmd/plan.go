package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"brickyard/internal/brick"
)

var planJSONOutput bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Inspect stored module plans",
}

var planListCmd = &cobra.Command{
	Use:   "list",
	Short: "List modules with stored plans",
	Args:  cobra.NoArgs,
	RunE:  runPlanList,
}

var planShowCmd = &cobra.Command{
	Use:   "show <module-name>",
	Short: "Show the stored plan for a module",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanShow,
}

func init() {
	planShowCmd.Flags().BoolVar(&planJSONOutput, "json", false, "output the raw plan as JSON")

	planCmd.AddCommand(planListCmd)
	planCmd.AddCommand(planShowCmd)
	rootCmd.AddCommand(planCmd)
}

func runPlanList(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	modules, err := brick.NewStore(cfg.PlansDir).List()
	if err != nil {
		return err
	}
	if len(modules) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no stored plans")
		return nil
	}
	for _, m := range modules {
		fmt.Fprintln(cmd.OutOrStdout(), m)
	}
	return nil
}

func runPlanShow(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	plan, err := brick.NewStore(cfg.PlansDir).Load(args[0])
	if err != nil {
		return err
	}

	if planJSONOutput {
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal plan: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Module %s (%d bricks, session %s)\n", plan.ModuleName, len(plan.Bricks), plan.GenerationSessionID)
	for i, bp := range plan.Bricks {
		fmt.Fprintf(out, "  %d. %s -> %s (%s)\n", i+1, bp.Name, bp.TargetDir, bp.Kind)
		if len(bp.DependsOn) > 0 {
			fmt.Fprintf(out, "     depends on: %v\n", bp.DependsOn)
		}
	}
	return nil
}
