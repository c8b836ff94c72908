package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/assessgen/internal/render"
	"github.com/abhisek/assessgen/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored assessments",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		recs, err := rt.assessmentRepo().List(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("list assessments: %w", err)
		}
		fmt.Print(render.Assessments(recs))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a stored assessment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		svc, err := rt.service()
		if err != nil {
			return err
		}
		a, err := svc.Get(cmd.Context(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("assessment %s not found", args[0])
		}
		if err != nil {
			return err
		}

		if path, _ := cmd.Flags().GetString("xlsx"); path != "" {
			if err := writeWorkbook(path, a); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
		}
		answers, _ := cmd.Flags().GetBool("answers")
		fmt.Println(render.Assessment(a, answers))
		return nil
	},
}

func init() {
	listCmd.Flags().IntP("limit", "n", 20, "Number of assessments to show")

	showCmd.Flags().Bool("answers", false, "Include answers and the enriched context")
	showCmd.Flags().String("xlsx", "", "Write the assessment to an Excel workbook")
}
