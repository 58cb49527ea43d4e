// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - Saved conversation management for lexrun CLI.
//
// Command: sessions [subcommand]
// Short:   List, show, export, search, and delete saved conversations
//
// Examples:
//   lexrun sessions list
//   lexrun sessions show 1
//   lexrun sessions search "implied consent"
//   lexrun sessions export 1 --format md
//   lexrun sessions delete 2 --confirm
//   lexrun sessions clear --confirm
//   lexrun sessions reindex
package cli

import (
	"fmt"
	"strconv"

	"github.com/morganforge/lexrun/internal/config"
	"github.com/morganforge/lexrun/internal/export"
	"github.com/morganforge/lexrun/internal/storage"
)

// HandleSessions executes the sessions command.
func HandleSessions(args Args) error {
	cfg := loadConfig(args)
	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "", "list", "ls":
		return sessionsList(store, args)
	case "show":
		return sessionsShow(store, args, parser)
	case "search":
		return sessionsSearch(cfg, store, args, parser)
	case "export":
		return sessionsExport(cfg, store, parser)
	case "delete", "rm":
		return sessionsDelete(cfg, store, parser)
	case "clear", "delete-all":
		return sessionsClear(cfg, store, parser)
	case "reindex", "rebuild":
		return sessionsReindex(cfg, store)
	default:
		return fmt.Errorf("unknown sessions subcommand %q (try: list, show, search, export, delete, clear, reindex)",
			parser.Subcommand())
	}
}

// sessionsList prints the saved conversation listing.
func sessionsList(store *storage.ConversationStore, args Args) error {
	metas, err := store.List()
	if err != nil {
		return err
	}
	if args.JSON {
		return printJSON(metas)
	}
	fmt.Print(storage.FormatList(metas))
	return nil
}

// conversationArg resolves the numeric argument of show/export/delete.
func conversationArg(store *storage.ConversationStore, parser *ArgParser) (*storage.StoredConversation, error) {
	ref := parser.Positional(1)
	if ref == "" {
		return nil, fmt.Errorf("conversation number required (see: lexrun sessions list)")
	}

	// List numbers are 1-based; LoadByIndex counts from zero.
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 {
			return nil, fmt.Errorf("conversation numbers start at 1")
		}
		return store.LoadByIndex(n - 1)
	}
	// Full IDs work too, for scripting.
	return store.Load(ref)
}

// sessionsShow prints one conversation's transcript.
func sessionsShow(store *storage.ConversationStore, args Args, parser *ArgParser) error {
	conv, err := conversationArg(store, parser)
	if err != nil {
		return err
	}

	if args.JSON {
		return printJSON(conv)
	}

	fmt.Println(TitleStyle.Render(conv.Title))
	fmt.Println(DimStyle.Render(fmt.Sprintf("%d messages, updated %s",
		conv.MessageCount(), conv.UpdatedAt.Format("2006-01-02 15:04"))))
	fmt.Println()

	for _, msg := range conv.Messages {
		switch msg.Role {
		case "user":
			fmt.Printf("%s %s\n", PromptStyle.Render(">"), msg.Content)
		default:
			displayAnswer(msg.Content)
			if len(msg.Sources) > 0 {
				fmt.Println(DimStyle.Render(fmt.Sprintf("  (%d source(s) cited)", len(msg.Sources))))
			}
		}
		fmt.Println()
	}
	return nil
}

// sessionsSearch runs full-text search across saved conversations.
func sessionsSearch(cfg *config.Config, store *storage.ConversationStore, args Args, parser *ArgParser) error {
	query := JoinPositionalArgs(parser, 1)
	if query == "" {
		return fmt.Errorf("search query required (usage: lexrun sessions search <query>)")
	}

	idx, err := openIndex(cfg)
	if err != nil {
		// Index unavailable falls back to the linear store scan.
		metas, serr := store.SearchMessages(query)
		if serr != nil {
			return serr
		}
		if args.JSON {
			return printJSON(metas)
		}
		fmt.Print(storage.FormatList(metas))
		return nil
	}
	defer idx.Close()

	hits, err := idx.Search(query, parser.FlagIntOrDefault("limit", 20))
	if err != nil {
		return err
	}

	if args.JSON {
		return printJSON(hits)
	}

	if len(hits) == 0 {
		fmt.Println(DimStyle.Render("No matches for: " + query))
		return nil
	}
	for _, hit := range hits {
		fmt.Printf("%s %s\n", SectionStyle.Render(hit.Title),
			DimStyle.Render(hit.UpdatedAt.Format("2006-01-02 15:04")))
		fmt.Printf("    %s: %s\n\n", hit.Role, hit.Snippet)
	}
	return nil
}

// sessionsExport writes one conversation to a file.
func sessionsExport(cfg *config.Config, store *storage.ConversationStore, parser *ArgParser) error {
	conv, err := conversationArg(store, parser)
	if err != nil {
		return err
	}

	opts := export.DefaultOptions()
	opts.OutputDir = parser.FlagOrDefault("output", cfg.Export.OutputDir)
	opts.OpenAfterExport = cfg.Export.OpenAfterExport

	exporter, err := export.ExporterFor(parser.FlagOrDefault("format", "report"), opts)
	if err != nil {
		return err
	}

	path, err := export.ExportToFile(conv, exporter, opts)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", SuccessStyle.Render("Exported:"), path)
	return nil
}

// sessionsDelete removes one conversation from disk and the index.
func sessionsDelete(cfg *config.Config, store *storage.ConversationStore, parser *ArgParser) error {
	conv, err := conversationArg(store, parser)
	if err != nil {
		return err
	}

	if !parser.BoolFlag("confirm") {
		return fmt.Errorf("deleting %q is permanent; re-run with --confirm", conv.Title)
	}

	if err := store.Delete(conv.ID); err != nil {
		return err
	}
	if idx, err := openIndex(cfg); err == nil {
		idx.Remove(conv.ID)
		idx.Close()
	}

	fmt.Printf("%s %s\n", SuccessStyle.Render("Deleted:"), conv.Title)
	return nil
}

// sessionsClear removes every saved conversation.
func sessionsClear(cfg *config.Config, store *storage.ConversationStore, parser *ArgParser) error {
	if !parser.BoolFlag("confirm") {
		return fmt.Errorf("this deletes ALL saved conversations; re-run with --confirm")
	}

	if err := store.Clear(); err != nil {
		return err
	}
	if idx, err := openIndex(cfg); err == nil {
		idx.Rebuild(store)
		idx.Close()
	}

	fmt.Println(SuccessStyle.Render("All conversations deleted."))
	return nil
}

// sessionsReindex rebuilds the search index from the store.
func sessionsReindex(cfg *config.Config, store *storage.ConversationStore) error {
	idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	if err := idx.Rebuild(store); err != nil {
		return err
	}

	stats, err := idx.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("%s %d conversations, %d messages indexed\n",
		SuccessStyle.Render("Reindexed:"), stats.ConversationCount, stats.MessageCount)
	return nil
}
