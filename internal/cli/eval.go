package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newEvalCmd() *cobra.Command {
	var (
		promptsFile string
		withGrading bool
		truthsFile  string
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run prompts as isolated turns and print results as JSON",
		Long: "Eval runs each prompt from the given file (one per line) as an " +
			"isolated conversation turn, resetting the session between prompts. " +
			"With --grade, each answer is scored by the judge model against the " +
			"matching line of the ground-truth file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompts, err := readLines(promptsFile)
			if err != nil {
				return err
			}
			var truths []string
			if truthsFile != "" {
				if truths, err = readLines(truthsFile); err != nil {
					return err
				}
			}

			sessions, grader := buildEngine(cfg, log)
			session := sessions.Get("eval")

			results, err := session.Evaluate(cmd.Context(), prompts)
			if err != nil {
				return fmt.Errorf("evaluation sweep: %w", err)
			}

			type evalRow struct {
				Prompt string `json:"prompt"`
				Answer string `json:"answer"`
				Grade  any    `json:"grade,omitempty"`
			}
			rows := make([]evalRow, 0, len(results))
			for i, res := range results {
				row := evalRow{Prompt: res.Prompt, Answer: res.Answer}
				if withGrading {
					truth := ""
					if i < len(truths) {
						truth = truths[i]
					}
					grade, gerr := grader.Grade(cmd.Context(), res.Prompt, truth, res.Answer, false)
					if gerr != nil {
						row.Grade = map[string]string{"error": gerr.Error()}
					} else {
						row.Grade = grade
					}
				}
				rows = append(rows, row)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		},
	}

	cmd.Flags().StringVar(&promptsFile, "prompts", "", "file with one prompt per line (required)")
	cmd.Flags().BoolVar(&withGrading, "grade", false, "grade each answer with the judge model")
	cmd.Flags().StringVar(&truthsFile, "truths", "", "file with one ground truth per line, matched to prompts by index")
	cmd.MarkFlagRequired("prompts")

	return cmd
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
