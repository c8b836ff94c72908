package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/assessgen/internal/assessment"
	"github.com/abhisek/assessgen/internal/export"
	"github.com/abhisek/assessgen/internal/render"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate and store an assessment",
	RunE: func(cmd *cobra.Command, args []string) error {
		curriculum, err := readCurriculum(cmd)
		if err != nil {
			return err
		}
		req := assessment.Request{Curriculum: curriculum}
		req.SubjectOrRole, _ = cmd.Flags().GetString("role")
		req.Difficulty, _ = cmd.Flags().GetString("difficulty")
		req.CognitiveLevel, _ = cmd.Flags().GetString("level")
		req.Title, _ = cmd.Flags().GetString("title")
		req.TotalQuestions, _ = cmd.Flags().GetInt("total")
		req.StudentID, _ = cmd.Flags().GetString("student")
		req.ExcludeFrom, _ = cmd.Flags().GetString("exclude-from")

		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		svc, err := rt.service()
		if err != nil {
			return err
		}

		a, err := svc.Generate(cmd.Context(), req)
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
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			out := a
			if !answers {
				out = a.StudentView()
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}
		fmt.Println(render.Assessment(a, answers))
		return nil
	},
}

func writeWorkbook(path string, a *assessment.Assessment) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	if err := export.WriteXLSX(f, a); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func init() {
	generateCmd.Flags().StringP("role", "r", "", "Subject or role the assessment targets")
	generateCmd.Flags().StringP("difficulty", "d", "medium", "Difficulty: easy, medium or hard")
	generateCmd.Flags().StringP("level", "l", "", "Proficiency or cognitive level, e.g. \"Analyze\"")
	generateCmd.Flags().StringP("curriculum", "c", "", "Curriculum text (defaults to the role)")
	generateCmd.Flags().StringP("file", "f", "", "Read the curriculum from a file")
	generateCmd.Flags().String("title", "", "Assessment title")
	generateCmd.Flags().IntP("total", "n", 10, "Total number of questions")
	generateCmd.Flags().String("student", "", "Student ID for per-student question assignment")
	generateCmd.Flags().String("exclude-from", "", "Avoid repeating questions from this stored assessment")
	generateCmd.Flags().String("xlsx", "", "Also write the assessment to an Excel workbook")
	generateCmd.Flags().Bool("json", false, "Print the assessment as JSON")
	generateCmd.Flags().Bool("answers", false, "Include answers and the enriched context in the output")
}
