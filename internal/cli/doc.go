// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the lexrun command-line interface.
//
// It provides the interactive chat REPL plus one-shot commands for
// asking questions, searching statutes and past research, managing
// saved sessions, and syncing the document folder with the backend.
//
// # Commands
//
//   - chat: interactive research session with streaming answers
//   - ask: one-shot question, suitable for scripting
//   - search: full-text search over statutes and case law
//   - sources: list and inspect the backend knowledge base
//   - sessions: list, show, export, and delete saved conversations
//   - docs: sync a local document folder with the backend
//   - status: backend and local storage health
//
// Output adapts to the environment: markdown rendering and colors on a
// TTY, plain text when piped, JSON with --json where supported.
package cli
