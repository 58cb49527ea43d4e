// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for lexrun CLI.
//
// USABILITY: Markdown rendering and history for better CLI experience
//
// Handles the "lexrun chat" command which provides an interactive REPL
// for legal research against the backend.
//
// Command: chat
// Short:   Start an interactive research session
//
// Examples:
//   lexrun chat                       Start interactive chat
//   lexrun chat --backend http://10.0.0.5:8000
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /clear, /c          Start a new conversation
//   /sessions           List saved conversations
//   /resume <n>         Resume saved conversation number n
//   /sources            Show sources for the last answer
//   /export [format]    Export this conversation (report, md, json)
//   /status, /s         Backend status
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel current answer
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/morganforge/lexrun/internal/config"
	"github.com/morganforge/lexrun/internal/export"
	"github.com/morganforge/lexrun/internal/legalapi"
	"github.com/morganforge/lexrun/internal/session"
	"github.com/morganforge/lexrun/internal/storage"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
// USABILITY: Supports arrow keys for history navigation and line editing.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		// Fallback to temp directory if config dir unavailable
		configDir = os.TempDir()
	}
	historyFile := filepath.Join(configDir, "chat_history")

	cli := &ChatCLI{
		line:        line,
		historyFile: historyFile,
	}

	cli.LoadHistory()
	return cli
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
// Supports history navigation with arrow keys.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}

	return input, nil
}

// SaveHistory persists input history to file with secure permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}

	// SECURITY: History may contain case details; owner read/write only.
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state for an interactive chat session.
type ChatSession struct {
	Controller *session.Controller
	Store      *storage.ConversationStore
	Client     *legalapi.Client
	Config     *config.Config
	Quiet      bool

	StartTime time.Time
	Questions int

	// Cancel function for the answer currently streaming
	CancelFunc context.CancelFunc

	// Input history handler
	InputCLI *ChatCLI
}

// NewChatSession creates a new interactive session.
func NewChatSession(args Args) (*ChatSession, error) {
	cfg := loadConfig(args)
	client := newClient(cfg)

	store, err := newStore(cfg)
	if err != nil {
		// Chat still works without persistence; say so once.
		fmt.Fprintf(os.Stderr, "Warning: %v (conversations will not be saved)\n", err)
		store = nil
	}

	return &ChatSession{
		Controller: session.NewController(client, store),
		Store:      store,
		Client:     client,
		Config:     cfg,
		Quiet:      args.Quiet,
		StartTime:  time.Now(),
		InputCLI:   NewChatCLI(),
	}, nil
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat handles the "chat" command with full interactive support.
func HandleChat(args Args) error {
	if err := RequiresTTY("start a chat session"); err != nil {
		return err
	}

	chat, err := NewChatSession(args)
	if err != nil {
		return err
	}
	defer chat.InputCLI.Close()

	// A dead backend is worth one warning, not a refusal; it may come up
	// mid-session.
	ctx := context.Background()
	if _, err := chat.Client.Health(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s backend at %s is not responding; answers will fail until it is up\n",
			WarningStyle.Render("Warning:"), chat.Client.BaseURL())
	}

	if !chat.Quiet {
		printWelcome(chat)
	}

	// Ctrl+C cancels the in-flight answer instead of killing the process.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		for range sigChan {
			if chat.CancelFunc != nil {
				chat.CancelFunc()
				chat.CancelFunc = nil
				fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[Cancelled]"))
			}
		}
	}()

	// Main REPL loop using liner for input history.
	for {
		input, err := chat.InputCLI.ReadInput(PromptStyle.Render("lexrun> "))
		if err != nil {
			// Ctrl+C at the prompt or EOF (Ctrl+D) exits gracefully.
			fmt.Println()
			printExitSummary(chat)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldContinue, err := handleSlashCommand(input, chat)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !shouldContinue {
				printExitSummary(chat)
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printExitSummary(chat)
			return nil
		}

		if err := processMessage(chat, input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), friendlyError(err))
		}
	}
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage sends a question and streams the answer to the terminal.
func processMessage(chat *ChatSession, input string) error {
	ctx, cancel := context.WithCancel(context.Background())
	chat.CancelFunc = cancel
	defer func() {
		chat.CancelFunc = nil
		cancel()
	}()

	chat.Questions++

	// Tokens echo as they arrive; on a TTY the settled answer is
	// re-rendered as markdown afterwards.
	renderAtEnd := IsStdoutTTY() && chat.Config.UI.RenderMarkdown

	fmt.Println()
	chat.Controller.SetEventObserver(func(event legalapi.Event) {
		if event.Type == legalapi.EventContent && !renderAtEnd {
			fmt.Print(event.Content)
		}
	})
	defer chat.Controller.SetEventObserver(nil)

	err := chat.Controller.SendMessage(ctx, input)
	if err != nil {
		return err
	}

	messages := chat.Controller.Messages()
	if len(messages) == 0 {
		return nil
	}
	last := messages[len(messages)-1]

	if renderAtEnd {
		displayAnswer(last.Content)
	} else {
		fmt.Println()
	}

	if !chat.Quiet {
		if chat.Config.UI.ShowSources {
			printSources(last.Sources)
		}
		if chat.Config.UI.ShowConfidence {
			printAnswerMeta(last.Confidence, last.IsSensitive)
		}
	}
	fmt.Println()

	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand dispatches a chat slash command. Returns false when
// the session should end.
func handleSlashCommand(input string, chat *ChatSession) (bool, error) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	rest := fields[1:]

	switch cmd {
	case "/help", "/h":
		printChatHelp()
		return true, nil

	case "/clear", "/c":
		chat.Controller.Clear()
		fmt.Println(DimStyle.Render("Conversation cleared. A new session has started."))
		return true, nil

	case "/sessions":
		if chat.Store == nil {
			return true, fmt.Errorf("conversation storage is unavailable")
		}
		metas, err := chat.Store.List()
		if err != nil {
			return true, err
		}
		fmt.Print(storage.FormatList(metas))
		return true, nil

	case "/resume":
		if chat.Store == nil {
			return true, fmt.Errorf("conversation storage is unavailable")
		}
		if len(rest) == 0 {
			return true, fmt.Errorf("usage: /resume <n>  (see /sessions for numbers)")
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil || n < 1 {
			return true, fmt.Errorf("invalid conversation number %q", rest[0])
		}
		conv, err := chat.Store.LoadByIndex(n - 1)
		if err != nil {
			return true, err
		}
		if err := chat.Controller.Resume(conv.ID); err != nil {
			return true, err
		}
		fmt.Printf("Resumed %q (%d messages).\n", conv.Title, conv.MessageCount())
		return true, nil

	case "/sources":
		printLastSources(chat)
		return true, nil

	case "/export":
		format := "report"
		if len(rest) > 0 {
			format = rest[0]
		}
		return true, exportCurrent(chat, format)

	case "/status", "/s":
		printBackendStatus(chat.Client)
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

// printLastSources shows the sources cited by the most recent answer.
func printLastSources(chat *ChatSession) {
	messages := chat.Controller.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "assistant" && !messages[i].IsStreaming {
			printSources(messages[i].Sources)
			return
		}
	}
	fmt.Println(DimStyle.Render("No answer yet."))
}

// exportCurrent exports the active conversation in the given format.
func exportCurrent(chat *ChatSession, format string) error {
	if chat.Store == nil {
		return fmt.Errorf("conversation storage is unavailable")
	}

	conv, err := chat.Store.Load(chat.Controller.ConversationID())
	if err != nil {
		return fmt.Errorf("nothing to export yet: %w", err)
	}

	opts := export.DefaultOptions()
	opts.OutputDir = chat.Config.Export.OutputDir
	opts.OpenAfterExport = chat.Config.Export.OpenAfterExport

	exporter, err := export.ExporterFor(format, opts)
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

// printBackendStatus shows a one-line backend health check.
func printBackendStatus(client *legalapi.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		fmt.Printf("%s backend at %s\n", RenderStatus("unreachable"), client.BaseURL())
		return
	}
	fmt.Printf("%s %s at %s\n", RenderStatus(health.Status), health.Service, client.BaseURL())
}

// =============================================================================
// BANNERS
// =============================================================================

// printWelcome shows the session banner.
func printWelcome(chat *ChatSession) {
	fmt.Println(TitleStyle.Render("lexrun - Wisconsin Legal Research Assistant"))
	fmt.Println(DimStyle.Render("Backend: " + chat.Client.BaseURL()))
	fmt.Println(DimStyle.Render("Type a question, /help for commands, /quit to exit."))
	fmt.Println(DimStyle.Render("Legal information, not legal advice. Consult your department's legal counsel."))
	fmt.Println()
}

// printChatHelp lists the interactive commands.
func printChatHelp() {
	fmt.Println(SectionStyle.Render("Chat commands:"))
	fmt.Println("  /help               Show this help")
	fmt.Println("  /clear              Start a new conversation")
	fmt.Println("  /sessions           List saved conversations")
	fmt.Println("  /resume <n>         Resume conversation number n")
	fmt.Println("  /sources            Show sources for the last answer")
	fmt.Println("  /export [format]    Export this conversation (report, md, json)")
	fmt.Println("  /status             Backend status")
	fmt.Println("  /quit               Exit")
}

// printExitSummary indexes the finished conversation and shows session
// statistics on exit.
func printExitSummary(chat *ChatSession) {
	if chat.Store != nil && chat.Questions > 0 {
		if conv, err := chat.Store.Load(chat.Controller.ConversationID()); err == nil {
			indexSaved(chat.Config, conv)
		}
	}
	if chat.Quiet {
		return
	}
	elapsed := time.Since(chat.StartTime).Round(time.Second)
	fmt.Println(DimStyle.Render(fmt.Sprintf("Session: %d question(s) in %s.", chat.Questions, elapsed)))
	if chat.Store != nil && chat.Questions > 0 {
		fmt.Println(DimStyle.Render("Conversation saved. Resume with: lexrun sessions list"))
	}
}
