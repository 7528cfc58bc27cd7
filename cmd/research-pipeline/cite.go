// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-pipeline/internal/citation"
	"github.com/pdiddy/research-pipeline/pkg/types"
)

var citeCmd = &cobra.Command{
	Use:   "cite",
	Short: "Format citations for a session's stored sources",
	Long: `Cite formats citations for every usable source already stored under a
session, in all four styles. The primary style goes through the model;
the others use deterministic templates. Citations are persisted, so
rerunning replaces the session's citation set.`,
	RunE: runCite,
}

func runCite(cmd *cobra.Command, args []string) error {
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

	sources, err := d.store.GetSources(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("session %s has no stored sources", sessionID)
	}

	formatter := citation.NewFormatter(d.gateway, d.prompts, d.store, d.logger)
	byStyle, err := formatter.Format(ctx, sessionID, sources)
	if err != nil {
		return err
	}

	style := types.ParseStyle(mustString(cmd, "style"))
	citations := byStyle[style]

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(citations)
	}

	fmt.Printf("%s citations for session %s:\n", style, sessionID)
	for _, c := range citations {
		fmt.Printf("  %s\n    in-text: %s\n", c.Formatted, c.InText)
	}
	return nil
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func init() {
	citeCmd.Flags().String("session", "", "session id (required)")
	citeCmd.Flags().String("style", "harvard", "style to print: apa, mla, chicago, harvard")
	citeCmd.Flags().Bool("json", false, "output citations as JSON")

	rootCmd.AddCommand(citeCmd)
}
