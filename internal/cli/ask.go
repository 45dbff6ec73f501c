package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ragqa/internal/domain"
)

func newAskCmd(a *app) *cobra.Command {
	var (
		topK   int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question from the indexed documents",
		Long: `Retrieves the chunks most similar to the question and asks the
configured generator to answer from them. The question is read from
standard input when no argument is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				cmd.Print("Question: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no question given")
				}
				question = strings.TrimSpace(line)
			}
			if !cmd.Flags().Changed("top-k") {
				topK = a.cfg.Retrieval.TopK
			}

			svc, closeStore, err := buildService(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeStore()

			answer, err := svc.Ask(cmd.Context(), domain.Query{Text: question, K: topK})
			if err != nil {
				return err
			}
			if asJSON {
				return outputAnswerJSON(cmd, answer)
			}
			outputAnswerText(cmd, answer)
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 3, "number of chunks to retrieve")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the answer as JSON")
	return cmd
}

func outputAnswerJSON(cmd *cobra.Command, answer domain.Answer) error {
	data, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswerText(cmd *cobra.Command, answer domain.Answer) {
	cmd.Println("Answer:")
	cmd.Println(answer.Text)
	if len(answer.Sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, s := range answer.Sources {
		cmd.Printf("  [%d] %s (chunk %d of %d, score %.3f)\n", i+1, s.Path, s.ChunkIndex+1, s.TotalChunks, s.Score)
		if s.Preview != "" {
			cmd.Printf("      %s\n", s.Preview)
		}
	}
}
