package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func newGradeCmd() *cobra.Command {
	var (
		question    string
		groundTruth string
		answer      string
		developer   bool
	)

	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Score one answer with the judge model",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, grader := buildEngine(cfg, log)

			result, err := grader.Grade(cmd.Context(), question, groundTruth, answer, developer)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&question, "question", "", "the question that was asked (required)")
	cmd.Flags().StringVar(&groundTruth, "truth", "", "reference answer")
	cmd.Flags().StringVar(&answer, "answer", "", "the answer to grade (required)")
	cmd.Flags().BoolVar(&developer, "developer-view", false, "include the judge prompt and raw reply")
	cmd.MarkFlagRequired("question")
	cmd.MarkFlagRequired("answer")

	return cmd
}
