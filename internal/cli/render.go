// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Shared output rendering for lexrun CLI commands.
//
// USABILITY: Markdown rendering for answers, plain text when piped.

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/morganforge/lexrun/internal/legalapi"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the global glamour renderer for markdown output.
// USABILITY: Renders answers with headings, lists, and emphasis intact.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fallback to plain text if renderer initialization fails
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails or renderer is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}

	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayAnswer prints an answer with markdown rendering when appropriate.
// Only renders markdown when stdout is a TTY to avoid corrupting piped output.
func displayAnswer(answer string) {
	if IsStdoutTTY() {
		fmt.Print(renderMarkdown(answer))
		if !strings.HasSuffix(answer, "\n") {
			fmt.Println()
		}
	} else {
		fmt.Println(answer)
	}
}

// =============================================================================
// JSON OUTPUT
// =============================================================================

// printJSON writes a value as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// SOURCES AND METADATA
// =============================================================================

// sourceLabel builds the one-line citation for a retrieved source.
func sourceLabel(src legalapi.Source) string {
	label := src.Metadata.Title
	if label == "" {
		label = src.ID
	}
	if src.Metadata.StatuteNum != "" {
		label += " (§ " + src.Metadata.StatuteNum + ")"
	} else if src.Metadata.CaseCitation != "" {
		label += " (" + src.Metadata.CaseCitation + ")"
	}
	return label
}

// printSources prints the cited sources of an answer.
func printSources(sources []legalapi.Source) {
	if len(sources) == 0 {
		fmt.Println(DimStyle.Render("No sources cited."))
		return
	}

	fmt.Println(SectionStyle.Render("Sources:"))
	for i, src := range sources {
		fmt.Printf("  [%d] %s\n", i+1, CitationStyle.Render(sourceLabel(src)))
		if src.Metadata.EffectiveDate != "" {
			fmt.Printf("      %s\n", DimStyle.Render("Effective: "+src.Metadata.EffectiveDate))
		}
		if src.Score > 0 {
			fmt.Printf("      %s\n", DimStyle.Render(fmt.Sprintf("Relevance: %d%%", int(src.Score*100+0.5))))
		}
	}
}

// printAnswerMeta prints the confidence line and sensitivity warning.
func printAnswerMeta(confidence legalapi.ConfidenceLevel, sensitive bool) {
	if confidence != "" {
		fmt.Printf("%s %s\n", DimStyle.Render("Confidence:"), RenderConfidence(string(confidence)))
	}
	if sensitive {
		fmt.Println(WarningStyle.Render("⚠ Sensitive topic. Requires special legal consideration."))
	}
}

// =============================================================================
// ERROR PRESENTATION
// =============================================================================

// friendlyError maps backend client failures to actionable messages.
func friendlyError(err error) error {
	switch {
	case legalapi.IsUnreachable(err):
		return fmt.Errorf("backend is not reachable; is the server running? (try: lexrun status)")
	case legalapi.IsTimeout(err):
		return fmt.Errorf("backend timed out; the question may be too broad or the server overloaded")
	case legalapi.IsNotFound(err):
		return fmt.Errorf("not found on the backend")
	default:
		return err
	}
}
