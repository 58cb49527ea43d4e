// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status command handler for lexrun CLI.
//
// Command: status
// Short:   Backend and local storage status
//
// Examples:
//   lexrun status
//   lexrun status --json
package cli

import (
	"context"
	"fmt"
	"time"
)

// statusReport is the JSON shape of the status command output.
type statusReport struct {
	Backend struct {
		URL       string `json:"url"`
		Reachable bool   `json:"reachable"`
		Status    string `json:"status,omitempty"`
		Service   string `json:"service,omitempty"`
	} `json:"backend"`
	KnowledgeBase struct {
		Documents   int    `json:"documents"`
		TotalChunks int    `json:"total_chunks"`
		LastIngest  string `json:"last_ingestion,omitempty"`
	} `json:"knowledge_base"`
	Local struct {
		StorageDir       string `json:"storage_dir,omitempty"`
		Conversations    int    `json:"conversations"`
		IndexedMessages  int    `json:"indexed_messages"`
		IndexSizeBytes   int64  `json:"index_size_bytes"`
		IndexAvailable   bool   `json:"index_available"`
		StorageAvailable bool   `json:"storage_available"`
	} `json:"local"`
}

// HandleStatus executes the status command.
func HandleStatus(args Args) error {
	cfg := loadConfig(args)
	client := newClient(cfg)

	var report statusReport
	report.Backend.URL = client.BaseURL()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if health, err := client.Health(ctx); err == nil {
		report.Backend.Reachable = true
		report.Backend.Status = health.Status
		report.Backend.Service = health.Service

		if sources, err := client.ListSources(ctx); err == nil {
			report.KnowledgeBase.Documents = len(sources.Sources)
			report.KnowledgeBase.TotalChunks = sources.TotalChunks
			report.KnowledgeBase.LastIngest = sources.LastIngestion
		}
	}

	if store, err := newStore(cfg); err == nil {
		report.Local.StorageAvailable = true
		report.Local.StorageDir = store.BaseDir
		if metas, err := store.List(); err == nil {
			report.Local.Conversations = len(metas)
		}
	}

	if idx, err := openIndex(cfg); err == nil {
		if stats, err := idx.Stats(); err == nil {
			report.Local.IndexAvailable = true
			report.Local.IndexedMessages = stats.MessageCount
			report.Local.IndexSizeBytes = stats.DatabaseSize
		}
		idx.Close()
	}

	if args.JSON {
		return printJSON(report)
	}

	fmt.Println(TitleStyle.Render("lexrun status"))

	if report.Backend.Reachable {
		fmt.Printf("%s backend %s at %s\n", RenderStatus(report.Backend.Status),
			report.Backend.Service, report.Backend.URL)
		fmt.Printf("%s %d documents, %d chunks\n", RenderLabel("Knowledge base:"),
			report.KnowledgeBase.Documents, report.KnowledgeBase.TotalChunks)
		if report.KnowledgeBase.LastIngest != "" {
			fmt.Printf("%s %s\n", RenderLabel("Last ingestion:"), report.KnowledgeBase.LastIngest)
		}
	} else {
		fmt.Printf("%s backend at %s\n", RenderStatus("unreachable"), report.Backend.URL)
		fmt.Println(DimStyle.Render("  Start the backend or point lexrun at it with --backend URL"))
	}

	fmt.Println()
	if report.Local.StorageAvailable {
		fmt.Printf("%s %d saved in %s\n", RenderLabel("Conversations:"),
			report.Local.Conversations, report.Local.StorageDir)
	} else {
		fmt.Printf("%s unavailable\n", RenderLabel("Conversations:"))
	}
	if report.Local.IndexAvailable {
		fmt.Printf("%s %d messages, %s\n", RenderLabel("Search index:"),
			report.Local.IndexedMessages, formatBytes(report.Local.IndexSizeBytes))
	}

	return nil
}

// formatBytes renders a byte count in human-readable units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
