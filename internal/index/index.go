// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/morganforge/lexrun/internal/storage"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrDatabaseError = errors.New("database error")
	ErrEmptyQuery    = errors.New("empty search query")
)

// =============================================================================
// CONVERSATION INDEX
// =============================================================================

// ConversationIndex maintains a searchable SQLite copy of saved
// conversations. The JSON store stays authoritative; the index is
// derived and rebuildable.
type ConversationIndex struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (or creates) the index database at the given path.
func Open(path string) (*ConversationIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-16000", // 16MB cache
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &ConversationIndex{db: db, path: path}, nil
}

// Close closes the index and releases resources.
func (idx *ConversationIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.db != nil {
		return idx.db.Close()
	}
	return nil
}

// =============================================================================
// INDEXING
// =============================================================================

// IndexConversation upserts a conversation and its messages.
func (idx *ConversationIndex) IndexConversation(conv *storage.StoredConversation) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	// Replace rather than diff: conversations are small.
	if _, err := tx.Exec("DELETE FROM messages WHERE conversation_id = ?", conv.ID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO conversations (id, title, updated_at, message_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			updated_at = excluded.updated_at,
			message_count = excluded.message_count
	`, conv.ID, conv.Title, conv.UpdatedAt.Unix(), len(conv.Messages)); err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}

	for _, msg := range conv.Messages {
		if _, err := tx.Exec(`
			INSERT INTO messages (conversation_id, message_id, role, content)
			VALUES (?, ?, ?, ?)
		`, conv.ID, msg.ID, msg.Role, msg.Content); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	return tx.Commit()
}

// Remove deletes a conversation from the index. Removing an unknown ID
// is a no-op.
func (idx *ConversationIndex) Remove(id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, err := idx.db.Exec("DELETE FROM conversations WHERE id = ?", id); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// Rebuild re-indexes every conversation in the store from scratch.
func (idx *ConversationIndex) Rebuild(store *storage.ConversationStore) error {
	convs, err := store.LoadAll()
	if err != nil {
		return err
	}

	idx.mu.Lock()
	tx, err := idx.db.Begin()
	if err != nil {
		idx.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if _, err := tx.Exec("DELETE FROM conversations"); err != nil {
		tx.Rollback()
		idx.mu.Unlock()
		return fmt.Errorf("failed to clear index: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM messages"); err != nil {
		tx.Rollback()
		idx.mu.Unlock()
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	if _, err := tx.Exec("UPDATE metadata SET value = ? WHERE key = 'last_rebuild'", time.Now().Unix()); err != nil {
		tx.Rollback()
		idx.mu.Unlock()
		return err
	}
	if err := tx.Commit(); err != nil {
		idx.mu.Unlock()
		return fmt.Errorf("failed to commit clear: %w", err)
	}
	idx.mu.Unlock()

	for _, conv := range convs {
		if err := idx.IndexConversation(conv); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SEARCH
// =============================================================================

// SearchHit is one matching message.
type SearchHit struct {
	ConversationID string
	Title          string
	MessageID      string
	Role           string
	Snippet        string
	UpdatedAt      time.Time
}

// Search finds messages matching the query, best matches first.
// The query is treated as literal text, not FTS syntax.
func (idx *ConversationIndex) Search(query string, limit int) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = 20
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	// Quote the query so FTS operators in user input are matched
	// literally instead of being interpreted.
	ftsQuery := `"` + strings.ReplaceAll(query, `"`, `""`) + `"`

	rows, err := idx.db.Query(`
		SELECT m.conversation_id, c.title, m.message_id, m.role,
		       snippet(messages_fts, 0, '', '', '...', 12),
		       c.updated_at
		FROM messages_fts
		JOIN messages m ON m.id = messages_fts.rowid
		JOIN conversations c ON c.id = m.conversation_id
		WHERE messages_fts MATCH ?
		ORDER BY rank, c.updated_at DESC
		LIMIT ?
	`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var hit SearchHit
		var updatedAt int64
		if err := rows.Scan(&hit.ConversationID, &hit.Title, &hit.MessageID, &hit.Role, &hit.Snippet, &updatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		hit.UpdatedAt = time.Unix(updatedAt, 0)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stats summarizes the index contents.
type Stats struct {
	ConversationCount int
	MessageCount      int
	DatabaseSize      int64
}

// Stats returns current index statistics.
func (idx *ConversationIndex) Stats() (Stats, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var stats Stats
	if err := idx.db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&stats.ConversationCount); err != nil {
		return stats, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if err := idx.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&stats.MessageCount); err != nil {
		return stats, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if info, err := os.Stat(idx.path); err == nil {
		stats.DatabaseSize = info.Size()
	}
	return stats, nil
}
