// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat conversations to disk.
//
// Each conversation is one JSON file under the lexrun data directory.
// Writes are atomic (temp file, fsync, rename) so a crash mid-save leaves
// either the previous version or the new complete one, never a torn file.
//
// # Key Types
//
//   - ConversationStore: save, load, list, search and delete conversations
//   - StoredConversation: serializable conversation with legal metadata
//   - ConversationMeta: lightweight metadata for listing
//
// # Usage
//
//	store, err := storage.NewConversationStoreWithDir(dir)
//	id, err := store.Save(conversation)
//	metas, err := store.List()
//	conv, err := store.Load(metas[0].ID)
//
// AutoSave is the write path used while a chat is streaming: it skips
// empty transcripts and preserves the title and creation time of an
// existing record.
//
// # Storage Location
//
// Conversations are stored in ~/.lexrun/conversations/ as JSON files.
package storage
