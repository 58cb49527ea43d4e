// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package docs

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/morganforge/lexrun/internal/legalapi"
)

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend is the slice of the API client the syncer needs.
type Backend interface {
	UploadDocument(ctx context.Context, filename string, content io.Reader) (*legalapi.UploadResponse, error)
	DeleteDocument(ctx context.Context, filename string) (*legalapi.DeleteResponse, error)
	IngestDocuments(ctx context.Context) (*legalapi.IngestResponse, error)
}

// DefaultExtensions are the document types the backend can ingest.
var DefaultExtensions = []string{".pdf", ".txt", ".md", ".docx"}

// =============================================================================
// SYNCER
// =============================================================================

// Syncer uploads a local document folder to the backend.
type Syncer struct {
	backend    Backend
	dir        string
	extensions map[string]bool
}

// NewSyncer creates a syncer for the given folder using DefaultExtensions.
func NewSyncer(backend Backend, dir string) *Syncer {
	return NewSyncerWithExtensions(backend, dir, DefaultExtensions)
}

// NewSyncerWithExtensions creates a syncer with a custom extension filter.
func NewSyncerWithExtensions(backend Backend, dir string, extensions []string) *Syncer {
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = true
	}
	return &Syncer{backend: backend, dir: dir, extensions: exts}
}

// Dir returns the folder being synced.
func (s *Syncer) Dir() string {
	return s.dir
}

// Eligible reports whether a path names a document the backend can ingest.
// Hidden files are skipped so editor swap files don't get uploaded.
func (s *Syncer) Eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return s.extensions[strings.ToLower(filepath.Ext(base))]
}

// SyncResult summarizes a one-shot sync.
type SyncResult struct {
	Uploaded []string
	Failed   []string
	Chunks   int // Chunks created by the ingest run
}

// Sync uploads every eligible file in the folder, then triggers an
// ingest run so the backend re-indexes the corpus. Individual upload
// failures are logged and counted but do not abort the sync.
func (s *Syncer) Sync(ctx context.Context) (*SyncResult, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read document folder: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !s.Eligible(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	result := &SyncResult{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.uploadFile(ctx, filepath.Join(s.dir, name)); err != nil {
			log.Printf("docs: upload %s failed: %v", name, err)
			result.Failed = append(result.Failed, name)
			continue
		}
		result.Uploaded = append(result.Uploaded, name)
	}

	if len(result.Uploaded) > 0 {
		ingest, err := s.backend.IngestDocuments(ctx)
		if err != nil {
			return result, fmt.Errorf("ingest failed after upload: %w", err)
		}
		result.Chunks = ingest.ChunksCreated
	}
	return result, nil
}

// uploadFile streams a single file to the backend.
func (s *Syncer) uploadFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = s.backend.UploadDocument(ctx, filepath.Base(path), f)
	return err
}

// deleteRemote removes the backend copy of a local file. Missing remote
// files are treated as already deleted.
func (s *Syncer) deleteRemote(ctx context.Context, path string) error {
	_, err := s.backend.DeleteDocument(ctx, filepath.Base(path))
	if legalapi.IsNotFound(err) {
		return nil
	}
	return err
}
