// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sources.go - Knowledge base inspection command handler for lexrun CLI.
//
// Command: sources [type]
// Short:   Inspect the backend knowledge base
//
// Examples:
//   lexrun sources                    Knowledge base summary
//   lexrun sources statute            All statute documents
//   lexrun sources case_law --json
package cli

import (
	"context"
	"fmt"

	"github.com/morganforge/lexrun/internal/legalapi"
)

// HandleSources executes the sources command.
func HandleSources(args Args) error {
	cfg := loadConfig(args)
	client := newClient(cfg)
	ctx := context.Background()

	if args.Subcommand != "" {
		return showSourceDetails(ctx, client, args)
	}

	resp, err := client.ListSources(ctx)
	if err != nil {
		return friendlyError(err)
	}

	if args.JSON {
		return printJSON(resp)
	}

	fmt.Println(TitleStyle.Render("Knowledge Base"))
	if len(resp.Sources) == 0 {
		fmt.Println(DimStyle.Render("No documents ingested. Add some with: lexrun docs sync <folder>"))
		return nil
	}

	for _, src := range resp.Sources {
		label := src.Title
		if src.StatuteNum != "" {
			label += " (§ " + src.StatuteNum + ")"
		} else if src.CaseCitation != "" {
			label += " (" + src.CaseCitation + ")"
		}
		fmt.Printf("  %s %s\n", DimStyle.Render(fmt.Sprintf("[%-8s]", src.Type)),
			ValueStyle.Render(label))
		if src.Description != "" {
			fmt.Printf("             %s\n", DimStyle.Render(src.Description))
		}
		fmt.Printf("             %s\n", DimStyle.Render(fmt.Sprintf("%d chunk(s)", src.ChunkCount)))
	}

	fmt.Println()
	fmt.Printf("%s %d chunks across %d documents\n",
		DimStyle.Render("Total:"), resp.TotalChunks, len(resp.Sources))
	if resp.LastIngestion != "" {
		fmt.Printf("%s %s\n", DimStyle.Render("Last ingestion:"), resp.LastIngestion)
	}

	return nil
}

// showSourceDetails lists every document of one type.
func showSourceDetails(ctx context.Context, client *legalapi.Client, args Args) error {
	docType := legalapi.DocumentType(args.Subcommand)

	resp, err := client.SourceDetails(ctx, docType)
	if err != nil {
		if legalapi.IsNotFound(err) {
			return fmt.Errorf("no documents of type %q (types: statute, case_law, policy, training)", args.Subcommand)
		}
		return friendlyError(err)
	}

	if args.JSON {
		return printJSON(resp)
	}

	fmt.Println(TitleStyle.Render(fmt.Sprintf("Documents: %s", resp.Type)))
	for _, doc := range resp.Documents {
		fmt.Printf("  %s %s\n", ValueStyle.Render(doc.Title),
			DimStyle.Render(fmt.Sprintf("(%d chunks)", len(doc.Chunks))))
	}
	fmt.Println()
	fmt.Printf("%s %d\n", DimStyle.Render("Total documents:"), resp.TotalDocuments)

	return nil
}
