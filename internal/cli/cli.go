// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for lexrun.
//
// CLI: Comprehensive help and examples for all commands
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdAsk
	CmdSearch
	CmdSources
	CmdSessions
	CmdDocs
	CmdStatus
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool   // Output in JSON format
	Backend string // Backend URL override

	// Command-specific
	Query      string
	Subcommand string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `lexrun - Wisconsin legal research assistant for the terminal

Lexrun talks to a local legal-research backend and keeps your research
sessions on disk.

It provides:
  - Interactive chat with streaming answers and source citations
  - Direct search over statutes, case law, and department policy
  - Saved conversations with full-text search and report export
  - Document folder sync into the backend knowledge base

Usage:
  lexrun                     Start interactive chat (default)
  lexrun chat                Interactive chat
  lexrun ask "question"      Ask a single question
  lexrun search <query>      Search statutes and case law directly
  lexrun sources [type]      Inspect the backend knowledge base
  lexrun sessions [subcommand] Saved conversation management
  lexrun docs [subcommand]   Document folder management
  lexrun status, s           Backend and storage status

Chat Commands (inside the chat session):
  /help                      Show chat commands
  /clear                     Start a new conversation
  /sessions                  List saved conversations
  /resume <n>                Resume conversation number n
  /sources                   Show sources for the last answer
  /export [format]           Export this conversation (report, md, json)
  /status                    Backend status
  /quit                      Exit

Search Command:
  lexrun search implied consent refusal
    --type statute|case_law|policy    Restrict to one document type
    --jurisdiction wisconsin|federal  Restrict to one jurisdiction
    --top N                           Number of results (default: 5)
    --local                           Search saved conversations instead
    --json                            Machine-readable output

Sources Commands:
  lexrun sources                    Knowledge base summary
  lexrun sources statute            Documents of one type
  lexrun sources case_law

Session Management Commands:
  lexrun sessions list              List saved conversations
  lexrun sessions show <n>          Show conversation n
  lexrun sessions search <query>    Full-text search across conversations
  lexrun sessions export <n>        Export conversation n
    --format report|md|json         Export format (default: report)
    --output DIR                    Output directory (default: current)
  lexrun sessions delete <n>        Delete conversation n
    --confirm                       Required confirmation flag
  lexrun sessions clear --confirm   Delete all conversations
  lexrun sessions reindex           Rebuild the local search index

Docs Commands:
  lexrun docs list                  List backend documents
  lexrun docs sync [folder]         Upload a folder and rebuild the knowledge base
  lexrun docs watch [folder]        Keep a folder continuously synced
  lexrun docs upload <file>         Upload a single document
  lexrun docs delete <file>         Delete a backend document
  lexrun docs ingest                Rebuild the knowledge base from uploaded files

Global Flags:
  --backend URL              Backend base URL (default: http://localhost:8000)
  --json                     JSON output where supported
  -q, --quiet                Suppress informational output
  -v, --verbose              Extra diagnostic output
  -h, --help                 Show this help
  --version                  Show version

Environment:
  LEXRUN_BACKEND_URL         Backend base URL
  LEXRUN_STORAGE_DIR         Conversation storage directory
  LEXRUN_DOCUMENTS_DIR       Document folder for docs sync
  NO_COLOR                   Disable colored output

Configuration:
  ~/.lexrun/config.toml      Main configuration file

Examples:
  lexrun ask "What is the OWI blood draw requirement?"
  lexrun search 346.63 --type statute
  lexrun sessions export 1 --format md
  lexrun docs watch ~/legal-docs
`

// PrintUsage prints the usage text.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("lexrun %s\n", Version)
	fmt.Printf("  commit:  %s\n", GitCommit)
	fmt.Printf("  built:   %s\n", BuildDate)
	fmt.Printf("  runtime: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Parse parses os.Args and returns the command to run plus its arguments.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses an explicit argument slice. Split out for testing.
func ParseArgs(args []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(args)

	// No arguments starts the interactive chat.
	if len(remaining) == 0 {
		return CmdChat, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "chat":
		return CmdChat, parsedArgs

	case "ask":
		parsedArgs.Query = joinQuery(remaining)
		return CmdAsk, parsedArgs

	case "search":
		parsedArgs.Query = joinQuery(remaining)
		return CmdSearch, parsedArgs

	case "sources", "kb":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdSources, parsedArgs

	case "session", "sessions":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdSessions, parsedArgs

	case "docs", "documents":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdDocs, parsedArgs

	case "status", "s":
		return CmdStatus, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown command reads as a question: "lexrun what is 346.63"
		// asks it directly rather than erroring.
		parsedArgs.Raw = append([]string{cmd}, remaining...)
		parsedArgs.Query = joinQuery(parsedArgs.Raw)
		return CmdAsk, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--backend":
			if i+1 < len(args) {
				i++
				parsedArgs.Backend = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--backend=") {
				parsedArgs.Backend = strings.TrimPrefix(arg, "--backend=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// joinQuery joins non-flag arguments into a single query string.
func joinQuery(args []string) string {
	var words []string
	skipNext := false
	for _, arg := range args {
		if skipNext {
			skipNext = false
			continue
		}
		if strings.HasPrefix(arg, "-") {
			// Value-taking flags consume the next argument.
			if !strings.Contains(arg, "=") && flagTakesValue(arg) {
				skipNext = true
			}
			continue
		}
		words = append(words, arg)
	}
	return strings.Join(words, " ")
}

// flagTakesValue reports whether a flag consumes the following argument.
func flagTakesValue(flag string) bool {
	switch strings.TrimLeft(flag, "-") {
	case "type", "jurisdiction", "top", "format", "output", "folder", "debounce", "limit":
		return true
	}
	return false
}
