// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// docs_cmd.go - Document folder management for lexrun CLI.
//
// Command: docs [subcommand]
// Short:   Sync a local document folder with the backend knowledge base
//
// Examples:
//   lexrun docs list
//   lexrun docs sync ~/legal-docs
//   lexrun docs watch ~/legal-docs --debounce 5000
//   lexrun docs upload policy-2024.pdf
//   lexrun docs delete policy-2023.pdf --confirm
//   lexrun docs ingest
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/morganforge/lexrun/internal/config"
	"github.com/morganforge/lexrun/internal/docs"
	"github.com/morganforge/lexrun/internal/legalapi"
)

// HandleDocs executes the docs command.
func HandleDocs(args Args) error {
	cfg := loadConfig(args)
	client := newClient(cfg)
	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "", "list", "ls":
		return docsList(client, args)
	case "sync":
		return docsSync(cfg, client, parser)
	case "watch":
		return docsWatch(cfg, client, args, parser)
	case "upload", "add":
		return docsUpload(client, parser)
	case "delete", "rm":
		return docsDelete(client, parser)
	case "ingest", "rebuild":
		return docsIngest(client)
	default:
		return fmt.Errorf("unknown docs subcommand %q (try: list, sync, watch, upload, delete, ingest)",
			parser.Subcommand())
	}
}

// docsList prints the backend's document folder contents.
func docsList(client *legalapi.Client, args Args) error {
	resp, err := client.ListDocuments(context.Background())
	if err != nil {
		return friendlyError(err)
	}

	if args.JSON {
		return printJSON(resp)
	}

	if resp.Count == 0 {
		fmt.Println(DimStyle.Render("No documents uploaded. Add some with: lexrun docs sync <folder>"))
		return nil
	}

	fmt.Println(TitleStyle.Render("Backend documents"))
	for _, doc := range resp.Documents {
		modified := time.Unix(int64(doc.Modified), 0).Format("2006-01-02 15:04")
		fmt.Printf("  %-40s %10s  %s\n", doc.Filename, formatBytes(doc.Size), DimStyle.Render(modified))
	}
	fmt.Printf("\n%s %d\n", DimStyle.Render("Total:"), resp.Count)
	return nil
}

// docsFolder resolves the folder argument, falling back to configuration.
func docsFolder(cfg *config.Config, parser *ArgParser) (string, error) {
	folder := parser.Positional(1)
	if folder == "" {
		folder = cfg.Documents.Dir
	}
	if folder == "" {
		return "", fmt.Errorf("no folder given and documents.dir is not configured")
	}
	return expandHome(folder)
}

// docsSync uploads a folder's documents and rebuilds the knowledge base.
func docsSync(cfg *config.Config, client *legalapi.Client, parser *ArgParser) error {
	folder, err := docsFolder(cfg, parser)
	if err != nil {
		return err
	}

	syncer := newSyncer(cfg, client, folder)

	fmt.Printf("Syncing %s...\n", folder)
	result, err := syncer.Sync(context.Background())
	if err != nil {
		return friendlyError(err)
	}

	for _, name := range result.Uploaded {
		fmt.Printf("  %s %s\n", SuccessStyle.Render("uploaded"), name)
	}
	for _, name := range result.Failed {
		fmt.Printf("  %s %s\n", ErrorStyle.Render("failed"), name)
	}

	if len(result.Uploaded) == 0 {
		fmt.Println(DimStyle.Render("Nothing to upload."))
		return nil
	}

	fmt.Printf("%s %d document(s), %d chunk(s) in the knowledge base\n",
		SuccessStyle.Render("Ingested:"), len(result.Uploaded), result.Chunks)
	return nil
}

// docsWatch keeps a folder continuously synced until interrupted.
func docsWatch(cfg *config.Config, client *legalapi.Client, args Args, parser *ArgParser) error {
	folder, err := docsFolder(cfg, parser)
	if err != nil {
		return err
	}

	syncer := newSyncer(cfg, client, folder)

	// Initial sync brings the backend up to date before watching.
	result, err := syncer.Sync(context.Background())
	if err != nil {
		return friendlyError(err)
	}
	if !args.Quiet && len(result.Uploaded) > 0 {
		fmt.Printf("Initial sync: %d document(s) uploaded.\n", len(result.Uploaded))
	}

	debounceMs := parser.FlagIntOrDefault("debounce", cfg.Documents.DebounceMs)
	watcher, err := docs.StartWatcher(syncer, time.Duration(debounceMs)*time.Millisecond)
	if err != nil {
		return err
	}
	defer watcher.Close()

	fmt.Printf("Watching %s (Ctrl+C to stop)...\n", folder)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nStopped.")
	return nil
}

// docsUpload uploads a single file.
func docsUpload(client *legalapi.Client, parser *ArgParser) error {
	path := parser.Positional(1)
	if path == "" {
		return fmt.Errorf("file required (usage: lexrun docs upload <file>)")
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	resp, err := client.UploadDocument(context.Background(), filepath.Base(path), f)
	if err != nil {
		return friendlyError(err)
	}

	fmt.Printf("%s %s (%s)\n", SuccessStyle.Render("Uploaded:"), resp.Filename, formatBytes(resp.Size))
	fmt.Println(DimStyle.Render("Run 'lexrun docs ingest' to add it to the knowledge base."))
	return nil
}

// docsDelete removes a backend document.
func docsDelete(client *legalapi.Client, parser *ArgParser) error {
	filename := parser.Positional(1)
	if filename == "" {
		return fmt.Errorf("filename required (usage: lexrun docs delete <file> --confirm)")
	}
	if !parser.BoolFlag("confirm") {
		return fmt.Errorf("deleting %q from the backend is permanent; re-run with --confirm", filename)
	}

	resp, err := client.DeleteDocument(context.Background(), filename)
	if err != nil {
		return friendlyError(err)
	}

	fmt.Printf("%s %s\n", SuccessStyle.Render("Deleted:"), resp.Filename)
	return nil
}

// docsIngest rebuilds the knowledge base from uploaded documents.
func docsIngest(client *legalapi.Client) error {
	fmt.Println("Rebuilding knowledge base...")

	resp, err := client.IngestDocuments(context.Background())
	if err != nil {
		return friendlyError(err)
	}

	fmt.Printf("%s %d document(s), %d chunk(s)\n",
		SuccessStyle.Render("Ingested:"), resp.DocumentsLoaded, resp.ChunksCreated)
	return nil
}

// newSyncer builds a syncer honoring configured extensions.
func newSyncer(cfg *config.Config, client *legalapi.Client, folder string) *docs.Syncer {
	if len(cfg.Documents.Extensions) > 0 {
		return docs.NewSyncerWithExtensions(client, folder, cfg.Documents.Extensions)
	}
	return docs.NewSyncer(client, folder)
}

// expandHome resolves a leading ~ in a path.
func expandHome(path string) (string, error) {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
