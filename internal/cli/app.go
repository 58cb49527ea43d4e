// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Shared construction of backend client and stores for CLI commands.

package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/morganforge/lexrun/internal/config"
	"github.com/morganforge/lexrun/internal/index"
	"github.com/morganforge/lexrun/internal/legalapi"
	"github.com/morganforge/lexrun/internal/storage"
)

// loadConfig loads configuration with CLI overrides applied.
func loadConfig(args Args) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Bad config files fall back to defaults; the commands still work
		// against a default backend.
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		cfg = config.Default()
	}

	if args.Backend != "" {
		cfg.Backend.URL = args.Backend
	}

	config.SetGlobal(cfg)
	return cfg
}

// newClient builds the backend client from configuration.
func newClient(cfg *config.Config) *legalapi.Client {
	return legalapi.NewClientWithConfig(&legalapi.ClientConfig{
		BaseURL:           cfg.Backend.URL,
		Timeout:           time.Duration(cfg.Backend.TimeoutSecs) * time.Second,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
	})
}

// newStore opens the conversation store rooted at the configured directory.
func newStore(cfg *config.Config) (*storage.ConversationStore, error) {
	dir, err := cfg.StorageDir()
	if err != nil {
		return nil, fmt.Errorf("resolving storage directory: %w", err)
	}
	store, err := storage.NewConversationStoreWithDir(dir)
	if err != nil {
		return nil, fmt.Errorf("opening conversation store: %w", err)
	}
	if cfg.Storage.MaxConversations > 0 {
		store.MaxConversations = cfg.Storage.MaxConversations
	}
	return store, nil
}

// openIndex opens the local full-text search index.
func openIndex(cfg *config.Config) (*index.ConversationIndex, error) {
	path, err := cfg.IndexPath()
	if err != nil {
		return nil, fmt.Errorf("resolving index path: %w", err)
	}
	idx, err := index.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening search index: %w", err)
	}
	return idx, nil
}

// indexSaved updates the search index for one conversation. Failures are
// reported but never fatal; the conversation itself is already on disk.
func indexSaved(cfg *config.Config, conv *storage.StoredConversation) {
	idx, err := openIndex(cfg)
	if err != nil {
		return
	}
	defer idx.Close()
	if err := idx.IndexConversation(conv); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: index update failed: %v\n", err)
	}
}
