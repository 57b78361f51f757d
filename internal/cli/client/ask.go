package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AskRequest represents the query API request.
type AskRequest struct {
	Query   string   `json:"query"`
	Sources []string `json:"sources,omitempty"`
	TopK    int      `json:"top_k,omitempty"`
}

// Citation represents a retrieved passage backing an answer.
type Citation struct {
	Label        string  `json:"label"`
	Collection   string  `json:"collection"`
	SourceType   string  `json:"source_type"`
	ContractType string  `json:"contract_type,omitempty"`
	Excerpt      string  `json:"excerpt"`
	Score        float32 `json:"score"`
	DocumentID   string  `json:"document_id"`
	ChunkIndex   int     `json:"chunk_index"`
}

// AskResponse represents the query API response.
type AskResponse struct {
	Answer        string     `json:"answer"`
	Degraded      bool       `json:"degraded"`
	FailureReason string     `json:"failure_reason,omitempty"`
	Citations     []Citation `json:"citations"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		sources []string
		topK    int
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the contract corpus",
		Long:  "Sends a natural-language question to the answer service and prints the synthesized answer with its citations.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(args[0], sources, topK, outputJSON)
		},
	}

	cmd.Flags().StringSliceVarP(&sources, "source", "s", nil, "Restrict to a source (static or live); repeatable")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of passages to retrieve (0 uses the server default)")

	return cmd
}

func runAsk(question string, sources []string, topK int, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := AskRequest{
		Query:   question,
		Sources: sources,
		TopK:    topK,
	}

	resp, err := api.Post("/query", req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var askResp AskResponse
	if err := json.Unmarshal(resp.Data, &askResp); err != nil {
		return fmt.Errorf("failed to parse answer: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(askResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if askResp.Degraded {
		fmt.Printf("[degraded: %s]\n\n", askResp.FailureReason)
	}
	fmt.Println(askResp.Answer)

	if len(askResp.Citations) > 0 {
		fmt.Printf("\nSources (%d):\n", len(askResp.Citations))
		for i, c := range askResp.Citations {
			fmt.Printf("%d. %s (%.2f)\n", i+1, c.Label, c.Score)
			excerpt := c.Excerpt
			if len(excerpt) > 100 {
				excerpt = excerpt[:97] + "..."
			}
			fmt.Printf("   %s\n", excerpt)
			if i < len(askResp.Citations)-1 {
				fmt.Println(strings.Repeat("-", 40))
			}
		}
	}

	return nil
}
