// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package docs keeps a local folder of legal documents in sync with the
// backend document store.
//
// A Syncer does one-shot uploads: every eligible file in the folder is
// uploaded, then an ingest run is triggered so the backend re-chunks and
// re-embeds the corpus. A Watcher layers continuous sync on top, pushing
// file changes to the backend as they happen.
//
// # Usage
//
// One-shot sync:
//
//	syncer := docs.NewSyncer(client, "/path/to/documents")
//	result, err := syncer.Sync(ctx)
//
// Continuous watching:
//
//	watcher, err := docs.StartWatcher(syncer, 2*time.Second)
//	defer watcher.Close()
package docs
