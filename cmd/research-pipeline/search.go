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
	"github.com/pdiddy/research-pipeline/internal/search"
	"github.com/pdiddy/research-pipeline/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [topic]",
	Short: "Search web and scholarly engines for sources on a topic",
	Long: `Search runs the search stage. With --session it reuses that session's
stored plan; otherwise it creates a session and plans first. Sources are
deduplicated by URL and persisted under the session.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	d, err := buildDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := context.Background()
	topic := strings.Join(args, " ")

	sessionID, _ := cmd.Flags().GetString("session")
	var planResult types.PlanResult
	if sessionID != "" {
		stored, err := d.store.GetPlan(ctx, sessionID)
		if err != nil {
			return err
		}
		if stored != nil {
			planResult = *stored
		}
	} else {
		sessionID, err = d.store.CreateSession(ctx, topic, nil)
		if err != nil {
			return err
		}
		planResult = plan.NewPlanner(d.gateway, d.prompts, d.logger).Plan(ctx, topic, nil)
		if err := d.store.StorePlan(ctx, sessionID, planResult); err != nil {
			return err
		}
	}

	orchestrator := search.NewOrchestrator(search.BuildEngines(d.cfg.Search), d.cfg.Search, d.store, d.logger)
	out, err := orchestrator.Search(ctx, sessionID, topic, planResult)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out.Sources)
	}

	fmt.Printf("Session: %s\n", sessionID)
	fmt.Printf("Queries run: %d", out.QueriesRun)
	if out.Broadened {
		fmt.Print(" (broadened)")
	}
	fmt.Println()
	for _, src := range out.Sources {
		fmt.Printf("  [%s] %s\n      %s\n", src.SourceType, src.Title, src.URL)
	}
	fmt.Printf("%d sources\n", len(out.Sources))
	return nil
}

func init() {
	searchCmd.Flags().String("session", "", "reuse an existing session's stored plan")
	searchCmd.Flags().Bool("json", false, "output sources as JSON")

	rootCmd.AddCommand(searchCmd)
}
