// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-pipeline/internal/pipeline"
	"github.com/pdiddy/research-pipeline/internal/section"
	"github.com/pdiddy/research-pipeline/pkg/types"
)

var sectionsCmd = &cobra.Command{
	Use:   "sections",
	Short: "Outline document sections for a session",
	Long: `Sections outlines the requested sections using a session's stored plan
and sources. Sections whose outline call fails are skipped; the others
are still produced and persisted.`,
	RunE: runSections,
}

func runSections(cmd *cobra.Command, args []string) error {
	d, err := buildDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := context.Background()
	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID == "" {
		return fmt.Errorf("--session is required")
	}

	sess, err := d.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("session %s not found", sessionID)
	}

	var planResult types.PlanResult
	if stored, err := d.store.GetPlan(ctx, sessionID); err != nil {
		return err
	} else if stored != nil {
		planResult = *stored
	}

	sources, err := d.store.GetSources(ctx, sessionID)
	if err != nil {
		return err
	}

	names, _ := cmd.Flags().GetStringSlice("sections")
	if len(names) == 0 {
		names = pipeline.DefaultSections
	}

	planner := section.NewPlanner(d.gateway, d.prompts, d.store, d.logger)
	outlines := planner.PlanSections(ctx, sessionID, sess.Topic, planResult, sources, names)

	for _, name := range names {
		outline, ok := outlines[name]
		if !ok {
			fmt.Printf("== %s: outline failed, skipped ==\n\n", name)
			continue
		}
		fmt.Printf("== %s ==\n%s\n\n", name, outline)
	}
	return nil
}

func init() {
	sectionsCmd.Flags().String("session", "", "session id (required)")
	sectionsCmd.Flags().StringSlice("sections", nil, "sections to outline (default: introduction,background,analysis,conclusion)")

	rootCmd.AddCommand(sectionsCmd)
}
