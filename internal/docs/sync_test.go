// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package docs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/morganforge/lexrun/internal/legalapi"
)

// fakeBackend records upload/delete/ingest calls in memory.
type fakeBackend struct {
	mu        sync.Mutex
	uploads   map[string]string // filename -> content
	deletes   []string
	ingests   int
	uploadErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{uploads: make(map[string]string)}
}

func (b *fakeBackend) UploadDocument(ctx context.Context, filename string, content io.Reader) (*legalapi.UploadResponse, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.uploadErr != nil {
		return nil, b.uploadErr
	}
	b.uploads[filename] = string(data)
	return &legalapi.UploadResponse{Status: "uploaded", Filename: filename, Size: int64(len(data))}, nil
}

func (b *fakeBackend) DeleteDocument(ctx context.Context, filename string) (*legalapi.DeleteResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.uploads[filename]; !ok {
		return nil, legalapi.ErrNotFound
	}
	delete(b.uploads, filename)
	b.deletes = append(b.deletes, filename)
	return &legalapi.DeleteResponse{Status: "deleted", Filename: filename}, nil
}

func (b *fakeBackend) IngestDocuments(ctx context.Context) (*legalapi.IngestResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ingests++
	return &legalapi.IngestResponse{Status: "complete", DocumentsLoaded: len(b.uploads), ChunksCreated: len(b.uploads) * 3}, nil
}

func (b *fakeBackend) uploadedNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var names []string
	for name := range b.uploads {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *fakeBackend) ingestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ingests
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestSync_UploadsEligibleFiles(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "statutes_346.pdf", "chapter 346 text")
	writeDoc(t, dir, "case_notes.md", "State v. Example notes")
	writeDoc(t, dir, "thumbnail.png", "not a document")
	writeDoc(t, dir, ".statutes_346.pdf.swp", "editor swap file")

	backend := newFakeBackend()
	syncer := NewSyncer(backend, dir)

	result, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	want := []string{"case_notes.md", "statutes_346.pdf"}
	got := backend.uploadedNames()
	if len(got) != len(want) {
		t.Fatalf("uploaded %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("uploaded %v, want %v", got, want)
		}
	}

	if len(result.Uploaded) != 2 {
		t.Errorf("result.Uploaded = %v, want 2 entries", result.Uploaded)
	}
	if backend.ingestCount() != 1 {
		t.Errorf("ingest ran %d times, want 1", backend.ingestCount())
	}
	if result.Chunks != 6 {
		t.Errorf("result.Chunks = %d, want 6", result.Chunks)
	}
}

func TestSync_EmptyFolderSkipsIngest(t *testing.T) {
	backend := newFakeBackend()
	syncer := NewSyncer(backend, t.TempDir())

	result, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if len(result.Uploaded) != 0 {
		t.Errorf("uploaded %v from empty folder", result.Uploaded)
	}
	if backend.ingestCount() != 0 {
		t.Error("ingest ran with nothing uploaded")
	}
}

func TestSync_UploadFailureDoesNotAbort(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", "first")
	writeDoc(t, dir, "b.txt", "second")

	backend := newFakeBackend()
	backend.uploadErr = errors.New("backend unavailable")
	syncer := NewSyncer(backend, dir)

	result, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if len(result.Failed) != 2 {
		t.Errorf("result.Failed = %v, want both files", result.Failed)
	}
	if backend.ingestCount() != 0 {
		t.Error("ingest ran with no successful uploads")
	}
}

func TestSync_MissingFolder(t *testing.T) {
	syncer := NewSyncer(newFakeBackend(), filepath.Join(t.TempDir(), "nope"))
	if _, err := syncer.Sync(context.Background()); err == nil {
		t.Fatal("expected error for missing folder")
	}
}

func TestEligible(t *testing.T) {
	syncer := NewSyncer(newFakeBackend(), t.TempDir())

	tests := []struct {
		path string
		want bool
	}{
		{"brief.pdf", true},
		{"NOTES.TXT", true},
		{"outline.docx", true},
		{"readme.md", true},
		{"image.png", false},
		{"archive.zip", false},
		{".hidden.pdf", false},
		{"no_extension", false},
	}
	for _, tt := range tests {
		if got := syncer.Eligible(tt.path); got != tt.want {
			t.Errorf("Eligible(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestEligible_CustomExtensions(t *testing.T) {
	syncer := NewSyncerWithExtensions(newFakeBackend(), t.TempDir(), []string{".rtf"})
	if !syncer.Eligible("memo.rtf") {
		t.Error("custom extension not eligible")
	}
	if syncer.Eligible("memo.pdf") {
		t.Error("default extension eligible with custom filter")
	}
}

func TestDeleteRemote_MissingIsNoOp(t *testing.T) {
	syncer := NewSyncer(newFakeBackend(), t.TempDir())
	if err := syncer.deleteRemote(context.Background(), "never_uploaded.pdf"); err != nil {
		t.Fatalf("deleteRemote returned %v for unknown file", err)
	}
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestFsnotifyWatcher_UploadsNewFile(t *testing.T) {
	dir := t.TempDir()
	backend := newFakeBackend()
	syncer := NewSyncer(backend, dir)

	fw, err := NewFsnotifyWatcher(syncer, 50*time.Millisecond)
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer fw.Close()
	if err := fw.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	writeDoc(t, dir, "new_ordinance.txt", "municipal ordinance text")

	ok := waitFor(t, 3*time.Second, func() bool {
		names := backend.uploadedNames()
		return len(names) == 1 && names[0] == "new_ordinance.txt"
	})
	if !ok {
		t.Fatalf("file never uploaded, backend has %v", backend.uploadedNames())
	}
}

func TestFsnotifyWatcher_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	backend := newFakeBackend()
	syncer := NewSyncer(backend, dir)

	fw, err := NewFsnotifyWatcher(syncer, 50*time.Millisecond)
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer fw.Close()
	if err := fw.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	writeDoc(t, dir, "screenshot.png", "binary")

	time.Sleep(300 * time.Millisecond)
	if names := backend.uploadedNames(); len(names) != 0 {
		t.Errorf("ineligible file uploaded: %v", names)
	}
}

func TestFsnotifyWatcher_RemoveDeletesBackendCopy(t *testing.T) {
	dir := t.TempDir()
	backend := newFakeBackend()
	syncer := NewSyncer(backend, dir)

	path := writeDoc(t, dir, "expired_statute.pdf", "repealed text")
	if _, err := syncer.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	fw, err := NewFsnotifyWatcher(syncer, 50*time.Millisecond)
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer fw.Close()
	if err := fw.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove file: %v", err)
	}

	ok := waitFor(t, 3*time.Second, func() bool {
		return len(backend.uploadedNames()) == 0
	})
	if !ok {
		t.Fatalf("backend copy not deleted, has %v", backend.uploadedNames())
	}
}

func TestPollingWatcher_DetectsNewFile(t *testing.T) {
	dir := t.TempDir()
	backend := newFakeBackend()
	syncer := NewSyncer(backend, dir)

	pw := NewPollingWatcher(syncer, 50*time.Millisecond)
	if err := pw.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer pw.Close()

	writeDoc(t, dir, "late_filing.txt", "added after baseline")

	ok := waitFor(t, 3*time.Second, func() bool {
		names := backend.uploadedNames()
		return len(names) == 1 && names[0] == "late_filing.txt"
	})
	if !ok {
		t.Fatalf("polling watcher missed new file, backend has %v", backend.uploadedNames())
	}
}

func TestPollingWatcher_BaselineNotUploaded(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "existing.pdf", "already synced elsewhere")

	backend := newFakeBackend()
	syncer := NewSyncer(backend, dir)

	pw := NewPollingWatcher(syncer, 50*time.Millisecond)
	if err := pw.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer pw.Close()

	time.Sleep(300 * time.Millisecond)
	if names := backend.uploadedNames(); len(names) != 0 {
		t.Errorf("baseline file re-uploaded: %v", names)
	}
}
