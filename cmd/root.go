package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/abhisek/assessgen/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "assessgen",
	Short: "Curriculum enrichment and assessment question generator",
	Long: "assessgen enriches a curriculum with topics, explanations and examples, " +
		"plans a question mix for a role or subject and generates a validated question set.",
	SilenceUsage: true,
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides ASSESSGEN_DB env var)")
	rootCmd.PersistentFlags().String("log", "", "Log mode: dev or prod (overrides ASSESSGEN_LOG_MODE)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Bool("trace", false, "Export OpenTelemetry spans to stderr")
	rootCmd.PersistentFlags().String("catalog", "", "Path to a keyword catalog YAML file (overrides ASSESSGEN_CATALOG_PATH)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured path, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, configured string) (string, error) {
	p, _ := cmd.Flags().GetString("db")
	if p == "" {
		p = configured
	}
	if p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
