// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single query command handler for lexrun CLI.
//
// Handles the "lexrun ask" command which sends one question to the legal
// research backend and prints the answer.
//
// Command: ask [question]
// Short:   Ask a single question
//
// Examples:
//   lexrun ask "What is the implied consent law?"
//   lexrun ask --json "OWI penalties for a second offense"
//   echo "343.305 refusal procedure" | xargs lexrun ask
//
// Flags:
//   --json              Output the full response as JSON
//   -q, --quiet         Answer only, no sources or confidence
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/morganforge/lexrun/internal/legalapi"
)

// HandleAsk executes the ask command.
func HandleAsk(args Args) error {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return fmt.Errorf("no question provided (usage: lexrun ask \"question\")")
	}

	cfg := loadConfig(args)
	client := newClient(cfg)
	ctx := context.Background()

	// JSON mode uses the non-streaming endpoint so the whole response,
	// sources included, arrives as one document.
	if args.JSON {
		resp, err := client.Chat(ctx, legalapi.ChatRequest{Query: query})
		if err != nil {
			return friendlyError(err)
		}
		return printJSON(resp)
	}

	// On a TTY the answer accumulates and renders as markdown once the
	// stream completes. Piped output gets raw tokens as they arrive.
	renderAtEnd := IsStdoutTTY() && cfg.UI.RenderMarkdown

	var answer strings.Builder
	var sources []legalapi.Source
	var confidence legalapi.ConfidenceLevel
	var sensitive bool

	err := client.ChatStream(ctx, legalapi.ChatRequest{Query: query}, func(event legalapi.Event) {
		switch event.Type {
		case legalapi.EventSources:
			sources = event.Sources
		case legalapi.EventMetadata:
			if event.Metadata != nil {
				confidence = event.Metadata.Confidence
				sensitive = event.Metadata.IsSensitive
			}
		case legalapi.EventContent:
			answer.WriteString(event.Content)
			if !renderAtEnd {
				fmt.Print(event.Content)
			}
		case legalapi.EventError:
			fmt.Fprintf(os.Stderr, "\n%s\n", ErrorStyle.Render("Error: "+event.Message))
		}
	})
	if err != nil {
		return friendlyError(err)
	}

	if renderAtEnd {
		displayAnswer(answer.String())
	} else if answer.Len() > 0 {
		fmt.Println()
	}

	if !args.Quiet {
		if cfg.UI.ShowSources {
			printSources(sources)
		}
		if cfg.UI.ShowConfidence {
			printAnswerMeta(confidence, sensitive)
		}
	}

	return nil
}
