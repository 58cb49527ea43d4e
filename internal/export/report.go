// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/morganforge/lexrun/internal/storage"
)

// =============================================================================
// REPORT EXPORTER
// =============================================================================

// ReportExporter exports conversations as plain-text research reports.
// The format is meant to be attached to case files: numbered query and
// response blocks, cited sources with statute numbers and relevance
// scores, and the legal-information disclaimer at the end.
type ReportExporter struct {
	options *Options
}

// NewReportExporter creates a new report exporter.
func NewReportExporter(opts *Options) *ReportExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &ReportExporter{options: opts}
}

const reportDivider = "================================================================================"
const reportRule = "--------------------------------------------------------------------------------"

// Export converts a conversation to report format.
func (e *ReportExporter) Export(conv *storage.StoredConversation) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is nil")
	}
	if len(conv.Messages) == 0 {
		return nil, fmt.Errorf("conversation has no messages")
	}

	var sb strings.Builder

	sb.WriteString("Wisconsin Legal Assistant - Conversation Report\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n", formatTimestamp(time.Now())))
	sb.WriteString(fmt.Sprintf("Title: %s\n", conv.Title))
	sb.WriteString(fmt.Sprintf("Created: %s\n", formatTimestamp(conv.CreatedAt)))
	sb.WriteString("\n" + reportDivider + "\n\n")

	for i, msg := range conv.Messages {
		role := "RESPONSE"
		if msg.Role == "user" {
			role = "QUERY"
		}

		sb.WriteString(fmt.Sprintf("[%d] %s (%s)\n", i+1, role, formatShortTimestamp(msg.Timestamp)))
		sb.WriteString(reportRule + "\n")
		sb.WriteString(msg.Content + "\n")

		if len(msg.Sources) > 0 {
			sb.WriteString("\nSources:\n")
			for j, source := range msg.Sources {
				sb.WriteString(fmt.Sprintf("  [%d] %s\n", j+1, source.Metadata.Title))
				if source.Metadata.StatuteNum != "" {
					sb.WriteString(fmt.Sprintf("      Statute: § %s\n", source.Metadata.StatuteNum))
				}
				if source.Metadata.CaseCitation != "" {
					sb.WriteString(fmt.Sprintf("      Citation: %s\n", source.Metadata.CaseCitation))
				}
				if source.Metadata.EffectiveDate != "" {
					sb.WriteString(fmt.Sprintf("      Effective: %s\n", source.Metadata.EffectiveDate))
				}
				sb.WriteString(fmt.Sprintf("      Relevance: %d%%\n", int(math.Round(source.Score*100))))
			}
		}

		if msg.Confidence != "" {
			sb.WriteString(fmt.Sprintf("\nConfidence: %s\n", strings.ToUpper(string(msg.Confidence))))
		}

		if msg.IsSensitive {
			sb.WriteString("\n⚠️  SENSITIVE TOPIC - Requires special legal consideration\n")
		}

		sb.WriteString("\n" + reportDivider + "\n\n")
	}

	sb.WriteString("\nDISCLAIMER:\n")
	sb.WriteString("This is legal information for Wisconsin law enforcement, not legal advice.\n")
	sb.WriteString("Always consult your department's legal counsel for specific situations.\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for plain-text reports.
func (e *ReportExporter) FileExtension() string {
	return ".txt"
}

// MimeType returns the MIME type for plain text.
func (e *ReportExporter) MimeType() string {
	return "text/plain"
}
