package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/assessgen/internal/render"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a curriculum with topics, explanations and examples",
	RunE: func(cmd *cobra.Command, args []string) error {
		curriculum, err := readCurriculum(cmd)
		if err != nil {
			return err
		}
		if curriculum == "" {
			return fmt.Errorf("--curriculum or --file is required")
		}

		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		ec, err := rt.enricher().Enrich(cmd.Context(), curriculum)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(ec)
		}
		fmt.Println(render.Enrichment(ec))
		return nil
	},
}

// readCurriculum returns --curriculum, or the contents of --file.
func readCurriculum(cmd *cobra.Command) (string, error) {
	text, _ := cmd.Flags().GetString("curriculum")
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		return text, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read curriculum: %w", err)
	}
	return string(data), nil
}

func init() {
	enrichCmd.Flags().StringP("curriculum", "c", "", "Curriculum text")
	enrichCmd.Flags().StringP("file", "f", "", "Read the curriculum from a file")
	enrichCmd.Flags().Bool("json", false, "Print the enriched curriculum as JSON")
}
