package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"family-portrait-server/modules/app"
	"family-portrait-server/modules/common/config"
)

var portrait *app.App

var rootCmd = &cobra.Command{
	Use:   "portrait-cli",
	Short: "Operator tool for the family portrait pipeline",
	Long: `portrait-cli drives the family portrait pipeline without the HTTP server.

It loads the same .env / environment configuration as the server.

Examples:
  portrait-cli generate -f family.json
  portrait-cli resolve ast_xxx
  portrait-cli unlock ast_xxx --ttl 720h
  portrait-cli sweep`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if skipsAppInit(cmd) {
			return nil
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		portrait, err = app.New(context.Background(), cfg)
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if portrait != nil {
			portrait.Close()
		}
	},
}

// skipsAppInit - help / completion은 Redis, Supabase 연결 없이 동작
func skipsAppInit(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(generateCmd, resolveCmd, unlockCmd, sweepCmd)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
