// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across lexrun: crash-safe
// file writing and width-aware string formatting for terminal output.
package util
