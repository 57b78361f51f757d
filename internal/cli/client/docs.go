package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// DocumentItem represents a document from the API.
type DocumentItem struct {
	ID           string `json:"id"`
	SourceID     string `json:"source_id"`
	Collection   string `json:"collection"`
	SourceType   string `json:"source_type"`
	ContractType string `json:"contract_type"`
	Ticker       string `json:"ticker,omitempty"`
	Company      string `json:"company,omitempty"`
	FiledAt      string `json:"filed_at,omitempty"`
	Origin       string `json:"origin"`
	CharLength   int    `json:"char_length"`
	CreatedAt    string `json:"created_at"`
}

// DocumentPage represents a page of the document listing.
type DocumentPage struct {
	Items   []DocumentItem `json:"items"`
	Cursor  string         `json:"cursor,omitempty"`
	HasMore bool           `json:"has_more"`
}

// DocsCmd creates the docs command.
func DocsCmd() *cobra.Command {
	var (
		collection string
		limit      int
		cursor     string
	)

	cmd := &cobra.Command{
		Use:   "docs [document_id]",
		Short: "List or inspect stored documents",
		Long:  "Lists documents in a collection, or shows a single document when an ID is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			if len(args) == 1 {
				return runDocGet(args[0], outputJSON)
			}
			return runDocList(collection, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Collection to list (historical or live)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of documents")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runDocList(collection string, limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	params := url.Values{}
	if collection != "" {
		params.Set("collection", collection)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	path := "/documents"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	var page DocumentPage
	if err := json.Unmarshal(resp.Data, &page); err != nil {
		return fmt.Errorf("failed to parse documents: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(page, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(page.Items) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	for _, d := range page.Items {
		fmt.Printf("%s  %-12s %-12s %s\n", d.ID, d.Collection, d.ContractType, d.SourceID)
	}
	if page.HasMore && page.Cursor != "" {
		fmt.Printf("\nMore documents available. Use --cursor %s\n", page.Cursor)
	}

	return nil
}

func runDocGet(documentID string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/documents/%s", documentID))
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	var doc DocumentItem
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("ID: %s\n", doc.ID)
	fmt.Printf("Source: %s\n", doc.SourceID)
	fmt.Printf("Collection: %s\n", doc.Collection)
	fmt.Printf("Contract type: %s\n", doc.ContractType)
	if doc.Ticker != "" {
		fmt.Printf("Ticker: %s\n", doc.Ticker)
	}
	if doc.Company != "" {
		fmt.Printf("Company: %s\n", doc.Company)
	}
	if doc.FiledAt != "" {
		fmt.Printf("Filed: %s\n", doc.FiledAt)
	}
	fmt.Printf("Origin: %s\n", doc.Origin)
	fmt.Printf("Length: %d chars\n", doc.CharLength)
	fmt.Printf("Created: %s\n", doc.CreatedAt)

	return nil
}
