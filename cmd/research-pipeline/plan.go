// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-pipeline/internal/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan [topic]",
	Short: "Build a research plan for a topic",
	Long: `Plan runs only the planning stage and prints the plan. A degraded
plan (unparsable model output) is printed with its raw response; the
command still exits zero, matching the pipeline's treatment of planning
as non-fatal.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	d, err := buildDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	topic := strings.Join(args, " ")
	questions, _ := cmd.Flags().GetStringArray("question")

	planner := plan.NewPlanner(d.gateway, d.prompts, d.logger)
	result := planner.Plan(context.Background(), topic, questions)

	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID != "" {
		if err := d.store.StorePlan(context.Background(), sessionID, result); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Plan stored for session %s\n", sessionID)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func init() {
	planCmd.Flags().StringArray("question", nil, "specific research question (repeatable)")
	planCmd.Flags().String("session", "", "store the plan under an existing session id")

	rootCmd.AddCommand(planCmd)
}
