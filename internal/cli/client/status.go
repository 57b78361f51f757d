package client

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// CollectionStatus is one collection's size as reported by the stats API.
type CollectionStatus struct {
	Collection string `json:"collection"`
	Documents  int    `json:"documents"`
	Chunks     int    `json:"chunks"`
}

// StatusResponse represents the stats API response.
type StatusResponse struct {
	Collections   []CollectionStatus `json:"collections"`
	ContractTypes map[string]int     `json:"contract_types"`
}

// StatusCmd creates the status command.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show corpus statistics",
		Long:  "Displays document and chunk counts per collection and the contract-type distribution.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runStatus(outputJSON)
		},
	}
}

func runStatus(outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get("/stats")
	if err != nil {
		return fmt.Errorf("failed to fetch stats: %w", err)
	}

	var status StatusResponse
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return fmt.Errorf("failed to parse stats: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println("Collections:")
	for _, c := range status.Collections {
		fmt.Printf("  %-12s %d documents, %d chunks\n", c.Collection, c.Documents, c.Chunks)
	}

	if len(status.ContractTypes) > 0 {
		types := make([]string, 0, len(status.ContractTypes))
		for t := range status.ContractTypes {
			types = append(types, t)
		}
		sort.Strings(types)

		fmt.Println("Contract types:")
		for _, t := range types {
			fmt.Printf("  %-12s %d\n", t, status.ContractTypes[t])
		}
	}

	return nil
}
