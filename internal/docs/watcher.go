// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package docs

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// FOLDER WATCHER INTERFACE
// =============================================================================

// FolderWatcher is the interface for document folder watching implementations
type FolderWatcher interface {
	// Watch starts watching for document changes
	Watch() error

	// Close stops watching and releases resources
	Close() error
}

// =============================================================================
// FSNOTIFY WATCHER
// =============================================================================

// FsnotifyWatcher implements FolderWatcher using fsnotify
type FsnotifyWatcher struct {
	syncer   *Syncer
	watcher  *fsnotify.Watcher
	debounce time.Duration
	mu       sync.Mutex
	pending  map[string]time.Time // File path -> last change time
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewFsnotifyWatcher creates a new fsnotify-based watcher
func NewFsnotifyWatcher(syncer *Syncer, debounce time.Duration) (*FsnotifyWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	fw := &FsnotifyWatcher{
		syncer:   syncer,
		watcher:  watcher,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}

	return fw, nil
}

// Watch starts watching the document folder
func (fw *FsnotifyWatcher) Watch() error {
	// The document folder is flat; subdirectories are not synced.
	if err := fw.watcher.Add(fw.syncer.Dir()); err != nil {
		return err
	}

	// Start event processing goroutine
	go fw.processEvents()

	// Start debounce timer goroutine
	go fw.processPending()

	return nil
}

// processEvents processes file system events
func (fw *FsnotifyWatcher) processEvents() {
	// RELIABILITY: Panic recovery so a watcher bug never takes down the client
	defer func() {
		if r := recover(); r != nil {
			log.Printf("docs: watcher goroutine panicked: %v", r)
		}
	}()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if !fw.syncer.Eligible(event.Name) {
				continue
			}

			// Writes and creates are debounced; editors often fire
			// several in quick succession for one save.
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {
				fw.handleFileChange(event.Name)
			}

			// Renames and removes drop the backend copy of the old name
			if event.Op&fsnotify.Rename == fsnotify.Rename ||
				event.Op&fsnotify.Remove == fsnotify.Remove {
				fw.removeRemote(event.Name)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("docs: watch error: %v", err)
		}
	}
}

// handleFileChange records a changed file for debounced upload
func (fw *FsnotifyWatcher) handleFileChange(path string) {
	fw.mu.Lock()
	fw.pending[path] = time.Now()
	fw.mu.Unlock()
}

// processPending uploads pending file changes after the debounce window
func (fw *FsnotifyWatcher) processPending() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			fw.mu.Lock()
			var toUpload []string
			for path, changeTime := range fw.pending {
				if now.Sub(changeTime) >= fw.debounce {
					toUpload = append(toUpload, path)
					delete(fw.pending, path)
				}
			}
			fw.mu.Unlock()

			for _, path := range toUpload {
				fw.uploadChanged(path)
			}
		}
	}
}

// uploadChanged pushes a changed file to the backend
func (fw *FsnotifyWatcher) uploadChanged(path string) {
	if _, err := os.Stat(path); err != nil {
		// Deleted between the event and the debounce tick
		fw.removeRemote(path)
		return
	}

	if err := fw.syncer.uploadFile(fw.ctx, path); err != nil {
		log.Printf("docs: upload %s failed: %v", path, err)
	}
}

// removeRemote deletes the backend copy of a local file
func (fw *FsnotifyWatcher) removeRemote(path string) {
	fw.mu.Lock()
	delete(fw.pending, path)
	fw.mu.Unlock()

	if err := fw.syncer.deleteRemote(fw.ctx, path); err != nil {
		log.Printf("docs: delete %s failed: %v", path, err)
	}
}

// Close stops watching and releases resources
func (fw *FsnotifyWatcher) Close() error {
	fw.cancel()
	if fw.watcher != nil {
		return fw.watcher.Close()
	}
	return nil
}

// =============================================================================
// POLLING WATCHER (FALLBACK)
// =============================================================================

// PollingWatcher implements FolderWatcher using periodic polling
type PollingWatcher struct {
	syncer   *Syncer
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	files    map[string]time.Time // File path -> mod time
	mu       sync.Mutex
}

// NewPollingWatcher creates a new polling-based watcher
func NewPollingWatcher(syncer *Syncer, interval time.Duration) *PollingWatcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &PollingWatcher{
		syncer:   syncer,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		files:    make(map[string]time.Time),
	}
}

// Watch starts watching for document changes
func (pw *PollingWatcher) Watch() error {
	// Initial scan establishes the baseline without uploading
	if err := pw.scan(); err != nil {
		return err
	}

	go pw.poll()

	return nil
}

// scan records the modification times of eligible files
func (pw *PollingWatcher) scan() error {
	entries, err := os.ReadDir(pw.syncer.Dir())
	if err != nil {
		return err
	}

	newFiles := make(map[string]time.Time)
	for _, entry := range entries {
		if entry.IsDir() || !pw.syncer.Eligible(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		newFiles[entry.Name()] = info.ModTime()
	}

	pw.mu.Lock()
	pw.files = newFiles
	pw.mu.Unlock()
	return nil
}

// poll periodically checks for document changes
func (pw *PollingWatcher) poll() {
	ticker := time.NewTicker(pw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-pw.ctx.Done():
			return

		case <-ticker.C:
			pw.checkChanges()
		}
	}
}

// checkChanges diffs the folder against the last scan and syncs the delta
func (pw *PollingWatcher) checkChanges() {
	pw.mu.Lock()
	oldFiles := make(map[string]time.Time, len(pw.files))
	for k, v := range pw.files {
		oldFiles[k] = v
	}
	pw.mu.Unlock()

	if err := pw.scan(); err != nil {
		log.Printf("docs: poll scan failed: %v", err)
		return
	}

	pw.mu.Lock()
	currentFiles := make(map[string]time.Time, len(pw.files))
	for k, v := range pw.files {
		currentFiles[k] = v
	}
	pw.mu.Unlock()

	dir := pw.syncer.Dir()
	for name, modTime := range currentFiles {
		if oldTime, exists := oldFiles[name]; !exists || !oldTime.Equal(modTime) {
			if err := pw.syncer.uploadFile(pw.ctx, filepath.Join(dir, name)); err != nil {
				log.Printf("docs: upload %s failed: %v", name, err)
			}
		}
	}

	for name := range oldFiles {
		if _, exists := currentFiles[name]; !exists {
			if err := pw.syncer.deleteRemote(pw.ctx, name); err != nil {
				log.Printf("docs: delete %s failed: %v", name, err)
			}
		}
	}
}

// Close stops watching
func (pw *PollingWatcher) Close() error {
	pw.cancel()
	return nil
}

// =============================================================================
// WATCHER FACTORY
// =============================================================================

// StartWatcher starts a folder watcher (fsnotify or polling fallback)
func StartWatcher(syncer *Syncer, debounce time.Duration) (FolderWatcher, error) {
	fw, err := NewFsnotifyWatcher(syncer, debounce)
	if err == nil {
		if err := fw.Watch(); err == nil {
			return fw, nil
		}
		fw.Close()
	}

	// Fallback to polling watcher
	pw := NewPollingWatcher(syncer, 5*time.Second)
	if err := pw.Watch(); err != nil {
		return nil, err
	}
	return pw, nil
}
