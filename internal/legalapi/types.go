// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package legalapi

// =============================================================================
// DOMAIN ENUMS
// =============================================================================

// DocumentType identifies the kind of legal document a chunk came from.
type DocumentType string

const (
	DocTypeStatute  DocumentType = "statute"
	DocTypeCaseLaw  DocumentType = "case_law"
	DocTypePolicy   DocumentType = "policy"
	DocTypeTraining DocumentType = "training"
	DocTypePDF      DocumentType = "pdf"
	DocTypeText     DocumentType = "txt"
	DocTypeMarkdown DocumentType = "md"
	DocTypeGeneric  DocumentType = "document"
)

// Jurisdiction identifies which body of law a document belongs to.
type Jurisdiction string

const (
	JurisdictionWisconsin Jurisdiction = "wisconsin"
	JurisdictionFederal   Jurisdiction = "federal"
)

// ConfidenceLevel is the backend's self-assessed answer confidence.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// =============================================================================
// CHAT TYPES
// =============================================================================

// ChatMessage is one prior turn sent back to the backend as history.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest is the body for both the streaming and non-streaming chat
// endpoints. History carries prior turns so the backend can resolve
// follow-up questions.
type ChatRequest struct {
	Query   string        `json:"query"`
	History []ChatMessage `json:"history"`
}

// ChatResponse is the complete answer from the non-streaming endpoint.
type ChatResponse struct {
	Answer      string          `json:"answer"`
	Sources     []Source        `json:"sources"`
	Confidence  ConfidenceLevel `json:"confidence"`
	IsSensitive bool            `json:"is_sensitive"`
	Disclaimer  string          `json:"disclaimer"`
}

// =============================================================================
// SOURCE TYPES
// =============================================================================

// CrossReference links a document chunk to related legal material.
type CrossReference struct {
	Target  string `json:"target"`
	Type    string `json:"type"`
	Context string `json:"context,omitempty"`
}

// SourceMetadata carries the legal provenance of a retrieved chunk.
// Statute fields and case fields are mutually exclusive in practice but
// the backend does not enforce that.
type SourceMetadata struct {
	Type           DocumentType     `json:"type"`
	Title          string           `json:"title"`
	Source         string           `json:"source,omitempty"`
	Page           int              `json:"page,omitempty"`
	Jurisdiction   Jurisdiction     `json:"jurisdiction,omitempty"`
	StatuteNum     string           `json:"statute_num,omitempty"`
	Chapter        string           `json:"chapter,omitempty"`
	Section        string           `json:"section,omitempty"`
	Subsection     string           `json:"subsection,omitempty"`
	CaseCitation   string           `json:"case_citation,omitempty"`
	EffectiveDate  string           `json:"effective_date,omitempty"`
	Status         string           `json:"status,omitempty"` // "current" or "superseded"
	HierarchyLevel int              `json:"hierarchy_level,omitempty"`
	CrossRefs      []CrossReference `json:"cross_references,omitempty"`
	StatutesCited  []string         `json:"statutes_cited,omitempty"`
	CasesCited     []string         `json:"cases_cited,omitempty"`
	IsSensitive    bool             `json:"is_sensitive,omitempty"`
	SensitiveTopic string           `json:"sensitive_topic,omitempty"`
	URL            string           `json:"url,omitempty"`
}

// Source is a retrieved document chunk cited by an answer.
type Source struct {
	ID               string         `json:"id"`
	Text             string         `json:"text"`
	Metadata         SourceMetadata `json:"metadata"`
	Score            float64        `json:"score"`
	IsCrossReference bool           `json:"is_cross_reference,omitempty"`
}

// =============================================================================
// SEARCH TYPES
// =============================================================================

// SearchRequest queries the document index directly, bypassing answer
// generation.
type SearchRequest struct {
	Query        string       `json:"query"`
	TopK         int          `json:"top_k,omitempty"`
	DocType      DocumentType `json:"doc_type,omitempty"`
	Jurisdiction Jurisdiction `json:"jurisdiction,omitempty"`
}

// SearchResult is one hit from a direct search.
type SearchResult struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata SourceMetadata `json:"metadata"`
	Score    float64        `json:"score"`
}

// SearchResponse carries the hits plus the query after backend expansion.
type SearchResponse struct {
	Results       []SearchResult `json:"results"`
	Query         string         `json:"query"`
	EnhancedQuery string         `json:"enhanced_query"`
}

// =============================================================================
// KNOWLEDGE BASE TYPES
// =============================================================================

// KnowledgeSource summarizes one ingested document in the knowledge base.
type KnowledgeSource struct {
	ID           string       `json:"id"`
	Type         DocumentType `json:"type"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	StatuteNum   string       `json:"statute_num,omitempty"`
	CaseCitation string       `json:"case_citation,omitempty"`
	ChunkCount   int          `json:"chunk_count"`
	LastUpdated  string       `json:"last_updated,omitempty"`
}

// SourcesResponse is the knowledge base summary.
type SourcesResponse struct {
	Sources       []KnowledgeSource `json:"sources"`
	TotalChunks   int               `json:"total_chunks"`
	LastIngestion string            `json:"last_ingestion,omitempty"`
}

// SourceChunk is one chunk listing within a per-type source detail.
type SourceChunk struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata"`
}

// SourceDocument groups the chunks of a single document.
type SourceDocument struct {
	ID     string        `json:"id"`
	Title  string        `json:"title"`
	Chunks []SourceChunk `json:"chunks"`
}

// SourceDetailsResponse lists every document of one type.
type SourceDetailsResponse struct {
	Type           string           `json:"type"`
	Documents      []SourceDocument `json:"documents"`
	TotalDocuments int              `json:"total_documents"`
}

// =============================================================================
// DOCUMENT MANAGEMENT TYPES
// =============================================================================

// DocumentFile describes a raw file in the backend's documents folder.
type DocumentFile struct {
	Filename string  `json:"filename"`
	Size     int64   `json:"size"`
	Modified float64 `json:"modified"` // unix timestamp with fraction
	Type     string  `json:"type"`
}

// ListDocumentsResponse is the documents folder listing.
type ListDocumentsResponse struct {
	Documents []DocumentFile `json:"documents"`
	Count     int            `json:"count"`
}

// UploadResponse confirms a document upload.
type UploadResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// DeleteResponse confirms a document deletion.
type DeleteResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
}

// IngestResponse reports the result of a knowledge base rebuild.
type IngestResponse struct {
	Status          string `json:"status"`
	DocumentsLoaded int    `json:"documents_loaded"`
	ChunksCreated   int    `json:"chunks_created"`
}

// HealthResponse is the backend liveness reply.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// NewUserMessage creates a history entry for a user turn.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// NewAssistantMessage creates a history entry for an assistant turn.
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}
