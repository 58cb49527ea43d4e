// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package legalapi provides the HTTP client for the legal research backend.
//
// The backend is a retrieval-augmented service over statutes, case law,
// policy and training material. This package covers its full API surface:
//
//   - Chat: non-streaming and server-sent-event streaming answers with
//     cited sources and a confidence rating
//   - Search: direct document search with type and jurisdiction filters
//   - Sources: knowledge base summaries and per-type document listings
//   - Documents: upload, list, delete and ingestion of source files
//
// Streaming responses are newline-delimited "data: <JSON>" events decoded
// by StreamReader. Malformed event lines are skipped so a single bad event
// never kills an otherwise healthy stream.
//
// # Usage
//
//	client := legalapi.NewClient()
//	err := client.ChatStream(ctx, legalapi.ChatRequest{Query: "What is OWI?"},
//	    func(ev legalapi.Event) {
//	        if ev.Type == legalapi.EventContent {
//	            fmt.Print(ev.Content)
//	        }
//	    })
package legalapi
