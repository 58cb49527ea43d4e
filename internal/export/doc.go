// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes saved conversations to shareable files.
//
// # Supported Formats
//
//   - Report: plain text formatted for attaching to case files, with
//     cited sources, relevance scores, and the legal-information
//     disclaimer
//   - Markdown: human-readable with formatting
//   - JSON: machine-readable with full metadata
//
// # Usage
//
// Export a conversation as a report:
//
//	path, err := export.ExportReport(conv, &export.Options{
//	    OutputDir: "~/reports",
//	})
//
// Or pick the exporter by format name:
//
//	exporter, err := export.ExporterFor("markdown", opts)
//	path, err := export.ExportToFile(conv, exporter, opts)
package export
