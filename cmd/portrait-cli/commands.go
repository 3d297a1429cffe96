package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	familyportrait "family-portrait-server/modules/family-portrait"
)

var (
	generateFile    string
	generateTimeout time.Duration
	unlockTTL       time.Duration
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a portrait from a family JSON file",
	Long: `Generate runs the full pipeline (upload, plan, passes, watermark) for a
request file shaped like the POST /api/family-portrait/generate body.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <assetId>",
	Short: "Print the clean locator of an asset (bypasses the unlock check)",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <assetId>",
	Short: "Record an asset as unlocked in the Redis ledger",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnlock,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired asset records",
	Args:  cobra.NoArgs,
	RunE:  runSweep,
}

func init() {
	generateCmd.Flags().StringVarP(&generateFile, "file", "f", "", "request JSON file (required)")
	generateCmd.Flags().DurationVar(&generateTimeout, "timeout", 15*time.Minute, "overall timeout")
	generateCmd.MarkFlagRequired("file")

	unlockCmd.Flags().DurationVar(&unlockTTL, "ttl", 30*24*time.Hour, "how long the unlock stays recorded")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(generateFile)
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}

	var req familyportrait.GenerateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parse request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
	defer cancel()

	artifact, err := portrait.Portrait.Generate(ctx, &req)
	if err != nil {
		return err
	}
	return printJSON(artifact)
}

func runResolve(cmd *cobra.Command, args []string) error {
	clean, err := portrait.Portrait.ResolveAsset(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Println(clean)
	return nil
}

func runUnlock(cmd *cobra.Command, args []string) error {
	ledger, ok := portrait.Unlocker.(*familyportrait.RedisUnlocker)
	if !ok {
		return errors.New("unlock ledger requires Redis")
	}
	if err := ledger.MarkUnlocked(context.Background(), args[0], unlockTTL); err != nil {
		return err
	}
	fmt.Printf("unlocked %s for %v\n", args[0], unlockTTL)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	removed, err := portrait.Assets.SweepExpired(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("removed %d expired asset record(s)\n", removed)
	return nil
}
