// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-pipeline/internal/moderation"
)

var moderateCmd = &cobra.Command{
	Use:   "moderate [topic]",
	Short: "Check whether a topic is appropriate for research",
	Long: `Moderate runs only the moderation stage. Verdicts are persisted, so
repeating a topic returns the stored verdict without a model call.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runModerate,
}

func runModerate(cmd *cobra.Command, args []string) error {
	d, err := buildDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	topic := strings.Join(args, " ")
	gate := moderation.NewGate(moderation.NewMemoryCache(), d.store, d.gateway, d.prompts, d.logger)

	ok, reason := gate.Moderate(context.Background(), topic)
	if ok {
		fmt.Println("APPROPRIATE")
		return nil
	}
	fmt.Printf("INAPPROPRIATE: %s\n", reason)
	return fmt.Errorf("topic rejected")
}

func init() {
	rootCmd.AddCommand(moderateCmd)
}
