// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// search.go - Direct search command handler for lexrun CLI.
//
// Handles the "lexrun search" command which queries the backend index
// directly without generating an answer, or with --local searches saved
// conversations instead.
//
// Command: search <query>
// Short:   Search statutes and case law directly
//
// Examples:
//   lexrun search implied consent refusal
//   lexrun search 346.63 --type statute --top 10
//   lexrun search "miranda" --local
//
// Flags:
//   --type TYPE         statute, case_law, policy, training
//   --jurisdiction J    wisconsin or federal
//   --top N             Number of results (default: 5)
//   --local             Search saved conversations instead of the backend
//   --json              Machine-readable output
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/morganforge/lexrun/internal/config"
	"github.com/morganforge/lexrun/internal/legalapi"
)

const defaultSearchResults = 5

// HandleSearch executes the search command.
func HandleSearch(args Args) error {
	parser := NewArgParser(args.Raw)

	query := strings.TrimSpace(JoinPositionalArgs(parser, 0))
	if query == "" {
		return fmt.Errorf("no query provided (usage: lexrun search <query>)")
	}

	cfg := loadConfig(args)

	if parser.BoolFlag("local") {
		return searchLocal(cfg, args, parser, query)
	}

	client := newClient(cfg)
	req := legalapi.SearchRequest{
		Query:        query,
		TopK:         parser.FlagIntOrDefault("top", defaultSearchResults),
		DocType:      legalapi.DocumentType(parser.Flag("type")),
		Jurisdiction: legalapi.Jurisdiction(parser.Flag("jurisdiction")),
	}

	resp, err := client.Search(context.Background(), req)
	if err != nil {
		return friendlyError(err)
	}

	if args.JSON {
		return printJSON(resp)
	}

	if len(resp.Results) == 0 {
		fmt.Println(DimStyle.Render("No results for: " + query))
		return nil
	}

	if resp.EnhancedQuery != "" && resp.EnhancedQuery != resp.Query && args.Verbose {
		fmt.Println(DimStyle.Render("Searched as: " + resp.EnhancedQuery))
	}

	for i, result := range resp.Results {
		fmt.Printf("%s %s\n", SectionStyle.Render(fmt.Sprintf("[%d]", i+1)),
			CitationStyle.Render(resultLabel(result)))
		fmt.Printf("    %s\n", DimStyle.Render(fmt.Sprintf("Relevance: %d%%", int(result.Score*100+0.5))))
		fmt.Printf("    %s\n\n", WrapText(excerpt(result.Text, 300), GetTerminalWidth()-4))
	}

	return nil
}

// searchLocal runs a full-text search over saved conversations.
func searchLocal(cfg *config.Config, args Args, parser *ArgParser, query string) error {
	idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	hits, err := idx.Search(query, parser.FlagIntOrDefault("top", 20))
	if err != nil {
		return err
	}

	if args.JSON {
		return printJSON(hits)
	}

	if len(hits) == 0 {
		fmt.Println(DimStyle.Render("No saved conversations match: " + query))
		return nil
	}

	for _, hit := range hits {
		fmt.Printf("%s %s\n", SectionStyle.Render(hit.Title),
			DimStyle.Render(hit.UpdatedAt.Format("2006-01-02 15:04")))
		fmt.Printf("    %s: %s\n\n", hit.Role, hit.Snippet)
	}
	fmt.Println(DimStyle.Render("Open a conversation with: lexrun sessions show <n>"))

	return nil
}

// resultLabel builds the citation line for a search hit.
func resultLabel(result legalapi.SearchResult) string {
	label := result.Metadata.Title
	if label == "" {
		label = result.ID
	}
	if result.Metadata.StatuteNum != "" {
		label += " (§ " + result.Metadata.StatuteNum + ")"
	} else if result.Metadata.CaseCitation != "" {
		label += " (" + result.Metadata.CaseCitation + ")"
	}
	return label
}

// excerpt truncates text for list display, cutting on a rune boundary.
func excerpt(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}
