// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-pipeline/internal/pipeline"
)

var researchCmd = &cobra.Command{
	Use:   "research [topic]",
	Short: "Run the full research pipeline for a topic",
	Long: `Research runs every stage for a topic: moderation, planning, search,
content extraction, citation formatting, and section outlines. All
intermediate results are persisted under a new session id, so individual
stages can be re-run later with the stage subcommands.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	d, err := buildDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	topic := strings.Join(args, " ")
	questions, _ := cmd.Flags().GetStringArray("question")
	sections, _ := cmd.Flags().GetStringSlice("sections")

	res, err := d.pipeline.ConductResearch(context.Background(), topic, questions, sections)
	if err != nil && res == nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	printResultSummary(res)
	if res.Error != "" {
		return fmt.Errorf("%s", res.Error)
	}
	return nil
}

func printResultSummary(res *pipeline.Result) {
	fmt.Printf("Session:  %s\n", res.SessionID)
	fmt.Printf("Topic:    %s\n", res.Topic)

	if !res.IsAppropriate {
		fmt.Printf("Rejected: %s\n", res.Reason)
		return
	}

	switch {
	case res.ResearchPlan.Ok():
		fmt.Printf("Plan:     %d research areas, %d section directives\n",
			len(res.ResearchPlan.Plan.ResearchAreas), len(res.ResearchPlan.Plan.SectionResearch))
	case res.ResearchPlan.Degraded:
		fmt.Printf("Plan:     degraded (%s)\n", res.ResearchPlan.Err)
	}

	fmt.Printf("Sources:  %d\n", len(res.Sources))
	for _, src := range res.Sources {
		fmt.Printf("  [%s] %s\n      %s\n", src.SourceType, src.Title, src.URL)
	}

	fmt.Printf("Citations (%s primary):\n", res.PrimaryStyle)
	for _, c := range res.Citations[res.PrimaryStyle] {
		fmt.Printf("  %s\n", c.Formatted)
	}

	if len(res.SectionPlans) > 0 {
		names := make([]string, 0, len(res.SectionPlans))
		for name := range res.SectionPlans {
			names = append(names, name)
		}
		fmt.Printf("Sections: %s\n", strings.Join(orderedSections(names), ", "))
	}
}

// orderedSections returns names in the default section order, with any
// extra names appended as-is.
func orderedSections(names []string) []string {
	index := make(map[string]bool, len(names))
	for _, n := range names {
		index[n] = true
	}

	var ordered []string
	for _, n := range pipeline.DefaultSections {
		if index[n] {
			ordered = append(ordered, n)
			delete(index, n)
		}
	}
	for _, n := range names {
		if index[n] {
			ordered = append(ordered, n)
		}
	}
	return ordered
}

func init() {
	researchCmd.Flags().StringArray("question", nil, "specific research question (repeatable)")
	researchCmd.Flags().StringSlice("sections", nil, "sections to outline (default: introduction,background,analysis,conclusion)")
	researchCmd.Flags().Bool("json", false, "output the full result as JSON")

	rootCmd.AddCommand(researchCmd)
}
