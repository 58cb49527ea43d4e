// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides full-text search over saved conversations.
//
// The index is a local SQLite database (pure Go driver) with an FTS5
// table over message content. It is derived data: the JSON conversation
// store remains the source of truth and the index can be rebuilt from it
// at any time.
//
// # Usage
//
// Open and populate an index:
//
//	idx, err := index.Open(dbPath)
//	err = idx.IndexConversation(conv)
//
// Search message content:
//
//	hits, err := idx.Search("implied consent", 20)
//	for _, h := range hits {
//	    fmt.Printf("%s  %s\n", h.ConversationID, h.Snippet)
//	}
//
// Rebuild from the store after external changes:
//
//	err = idx.Rebuild(store)
package index
