// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/morganforge/lexrun/internal/legalapi"
	"github.com/morganforge/lexrun/internal/storage"
)

func sampleConversation() *storage.StoredConversation {
	created := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	return &storage.StoredConversation{
		ID:        "conv_test",
		Title:     "What is OWI?",
		CreatedAt: created,
		UpdatedAt: created.Add(time.Minute),
		Messages: []storage.StoredMessage{
			{
				ID:        "m1",
				Role:      "user",
				Content:   "What is OWI?",
				Timestamp: created,
			},
			{
				ID:        "m2",
				Role:      "assistant",
				Content:   "Operating while intoxicated is covered by Wis. Stat. 346.63.",
				Timestamp: created.Add(30 * time.Second),
				Sources: []legalapi.Source{
					{
						ID:    "s1",
						Text:  "No person may drive or operate a motor vehicle while...",
						Score: 0.921,
						Metadata: legalapi.SourceMetadata{
							Title:         "Operating under influence of intoxicant",
							StatuteNum:    "346.63",
							EffectiveDate: "2023-01-01",
						},
					},
				},
				Confidence: legalapi.ConfidenceHigh,
			},
		},
	}
}

func TestReportExporter_Format(t *testing.T) {
	content, err := NewReportExporter(nil).Export(sampleConversation())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	report := string(content)

	for _, want := range []string{
		"Wisconsin Legal Assistant - Conversation Report",
		"Title: What is OWI?",
		"[1] QUERY (",
		"[2] RESPONSE (",
		"Sources:",
		"  [1] Operating under influence of intoxicant",
		"      Statute: § 346.63",
		"      Effective: 2023-01-01",
		"      Relevance: 92%",
		"Confidence: HIGH",
		"DISCLAIMER:",
		"This is legal information for Wisconsin law enforcement, not legal advice.",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q\n%s", want, report)
		}
	}
}

func TestReportExporter_SensitiveWarning(t *testing.T) {
	conv := sampleConversation()
	conv.Messages[1].IsSensitive = true

	content, err := NewReportExporter(nil).Export(conv)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(string(content), "SENSITIVE TOPIC - Requires special legal consideration") {
		t.Error("report missing sensitive topic warning")
	}
}

func TestReportExporter_EmptyConversation(t *testing.T) {
	_, err := NewReportExporter(nil).Export(&storage.StoredConversation{ID: "conv_empty"})
	if err == nil {
		t.Fatal("expected error for empty conversation")
	}
}

func TestMarkdownExporter(t *testing.T) {
	content, err := NewMarkdownExporter(nil).Export(sampleConversation())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	md := string(content)

	for _, want := range []string{
		"title: What is OWI?",
		"generator: lexrun",
		"# What is OWI?",
		"### [Query]",
		"### [Response]",
		"**Sources**:",
		"Operating under influence of intoxicant (§ 346.63)",
		"<sub>Confidence: high</sub>",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdownExporter_NoTimestamps(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeTimestamps = false

	content, err := NewMarkdownExporter(opts).Export(sampleConversation())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if strings.Contains(string(content), "<sub>09:30") {
		t.Error("timestamps present with IncludeTimestamps disabled")
	}
}

func TestJSONExporter_RoundTrip(t *testing.T) {
	conv := sampleConversation()
	content, err := NewJSONExporter(nil).Export(conv)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var decoded storage.StoredConversation
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("exported JSON does not parse: %v", err)
	}
	if decoded.ID != conv.ID || len(decoded.Messages) != 2 {
		t.Errorf("round trip lost data: %+v", decoded)
	}
	if decoded.Messages[1].Sources[0].Metadata.StatuteNum != "346.63" {
		t.Error("round trip lost source metadata")
	}
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	opts := &Options{OutputDir: dir, IncludeMetadata: true, IncludeTimestamps: true}

	path, err := ExportToFile(sampleConversation(), NewReportExporter(opts), opts)
	if err != nil {
		t.Fatalf("ExportToFile failed: %v", err)
	}

	if filepath.Dir(path) != dir {
		t.Errorf("file written to %s, want %s", filepath.Dir(path), dir)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "legal-research_What_is_OWI-") {
		t.Errorf("unexpected filename %q", base)
	}
	if !strings.HasSuffix(base, ".txt") {
		t.Errorf("unexpected extension on %q", base)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	if !strings.Contains(string(data), "DISCLAIMER:") {
		t.Error("written file missing disclaimer")
	}
}

func TestExporterFor(t *testing.T) {
	tests := []struct {
		format string
		ext    string
	}{
		{"report", ".txt"},
		{"txt", ".txt"},
		{"markdown", ".md"},
		{"md", ".md"},
		{"json", ".json"},
	}
	for _, tt := range tests {
		exporter, err := ExporterFor(tt.format, nil)
		if err != nil {
			t.Errorf("ExporterFor(%q) failed: %v", tt.format, err)
			continue
		}
		if exporter.FileExtension() != tt.ext {
			t.Errorf("ExporterFor(%q).FileExtension() = %q, want %q", tt.format, exporter.FileExtension(), tt.ext)
		}
	}

	if _, err := ExporterFor("pdf", nil); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"What is OWI?", "What_is_OWI-"},
		{"a/b\\c:d", "a-b-c-d"},
		{"", "conversation"},
		{strings.Repeat("x", 60), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
