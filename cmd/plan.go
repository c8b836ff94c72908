package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/assessgen/internal/assessment"
	"github.com/abhisek/assessgen/internal/catalog"
	"github.com/abhisek/assessgen/internal/questiongen"
	"github.com/abhisek/assessgen/internal/render"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the question-type mix for a role or subject",
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")
		total, _ := cmd.Flags().GetInt("total")
		if role == "" {
			return fmt.Errorf("--role is required")
		}
		if total < 0 || total > assessment.MaxQuestions {
			return fmt.Errorf("--total must be between 0 and %d", assessment.MaxQuestions)
		}

		path, _ := cmd.Flags().GetString("catalog")
		if path == "" {
			path = os.Getenv("ASSESSGEN_CATALOG_PATH")
		}
		cat, err := catalog.LoadOrDefault(path)
		if err != nil {
			return err
		}
		planner, err := questiongen.NewPlanner(cat)
		if err != nil {
			return err
		}
		plan := planner.Plan(role, total)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"category": planner.Category(role),
				"total":    plan.Total(),
				"plan":     plan,
			})
		}
		fmt.Println(render.Plan(role, plan))
		return nil
	},
}

func init() {
	planCmd.Flags().StringP("role", "r", "", "Role or subject, e.g. \"Software Engineer\"")
	planCmd.Flags().IntP("total", "n", 10, "Total number of questions")
	planCmd.Flags().Bool("json", false, "Print the plan as JSON")
}
