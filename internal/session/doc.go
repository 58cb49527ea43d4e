// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session orchestrates a chat conversation with the backend.
//
// The Controller owns the in-memory transcript. Sending a message appends
// the user turn and a streaming assistant placeholder before any network
// I/O, then folds stream events into the placeholder as they arrive.
// Every mutation targets a message by ID, so a transcript cleared
// mid-stream simply stops absorbing events; there is no hard cancel.
//
// The transcript is persisted best-effort after each mutation. Storage
// failures are logged and never interrupt an active stream.
//
// # Usage
//
//	ctrl := session.NewController(client, store)
//	err := ctrl.SendMessage(ctx, "What is OWI?")
//	for _, msg := range ctrl.Messages() {
//	    fmt.Println(msg.Role, msg.Content)
//	}
package session
