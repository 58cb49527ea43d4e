// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package legalapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(serverURL string) *Client {
	return NewClientWithConfig(&ClientConfig{
		BaseURL:           serverURL,
		RequestsPerSecond: -1, // no limiter in tests
	})
}

// =============================================================================
// CONFIGURATION TESTS
// =============================================================================

func TestNewClientWithConfig_Defaults(t *testing.T) {
	client := NewClientWithConfig(nil)
	if client.config.BaseURL != "http://localhost:8000" {
		t.Errorf("BaseURL = %q", client.config.BaseURL)
	}
	if client.config.Timeout == 0 {
		t.Error("Timeout not defaulted")
	}
	if client.limiter == nil {
		t.Error("Limiter should be enabled by default")
	}
}

func TestNewClientWithConfig_ZeroValueBackfill(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{BaseURL: "http://example.test"})
	if client.config.BaseURL != "http://example.test" {
		t.Errorf("BaseURL overwritten: %q", client.config.BaseURL)
	}
	if client.config.UserAgent != "lexrun" {
		t.Errorf("UserAgent = %q", client.config.UserAgent)
	}
}

func TestNewClientWithConfig_LimiterDisabled(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{RequestsPerSecond: -1})
	if client.limiter != nil {
		t.Error("Negative rate should disable the limiter")
	}
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestClientError_Sentinels(t *testing.T) {
	wrapped := &ClientError{Type: ErrTypeTimeout, Message: "slow backend"}
	if !errors.Is(wrapped, ErrTimeout) {
		t.Error("errors.Is should match on error type")
	}
	if errors.Is(wrapped, ErrNotFound) {
		t.Error("errors.Is should not cross error types")
	}
	if !IsTimeout(wrapped) {
		t.Error("IsTimeout helper failed")
	}
}

func TestClient_Unreachable(t *testing.T) {
	// Closed port: nothing listens here.
	client := newTestClient("http://127.0.0.1:1")
	_, err := client.Health(context.Background())
	if err == nil {
		t.Fatal("Expected error for unreachable backend")
	}
	if !IsUnreachable(err) {
		t.Errorf("Expected unreachable error, got %v", err)
	}
}

// =============================================================================
// HEALTH AND CHAT TESTS
// =============================================================================

func TestClient_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(HealthResponse{Status: "healthy", Service: "legal-rag"})
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if resp.Status != "healthy" || resp.Service != "legal-rag" {
		t.Errorf("Health response = %+v", resp)
	}
}

func TestClient_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" || r.Method != http.MethodPost {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Bad request body: %v", err)
		}
		if req.Query != "What is OWI?" {
			t.Errorf("Query = %q", req.Query)
		}
		json.NewEncoder(w).Encode(ChatResponse{
			Answer:     "Operating while intoxicated.",
			Confidence: ConfidenceHigh,
		})
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).Chat(context.Background(), ChatRequest{Query: "What is OWI?"})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Answer != "Operating while intoxicated." {
		t.Errorf("Answer = %q", resp.Answer)
	}
}

func TestClient_ChatStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat/stream" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		if accept := r.Header.Get("Accept"); accept != "text/event-stream" {
			t.Errorf("Accept = %q", accept)
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Bad request body: %v", err)
		}
		if len(req.History) != 2 {
			t.Errorf("History length = %d, want 2", len(req.History))
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"type":"sources","data":[{"id":"s1","text":"346.63","metadata":{"type":"statute","title":"OWI"},"score":0.9}]}`+"\n")
		fmt.Fprint(w, `data: {"type":"metadata","data":{"confidence":"high","is_sensitive":false}}`+"\n")
		fmt.Fprint(w, `data: {"type":"content","data":"Operating "}`+"\n")
		fmt.Fprint(w, `data: {"type":"content","data":"while intoxicated."}`+"\n")
		fmt.Fprint(w, `data: {"type":"done"}`+"\n")
	}))
	defer server.Close()

	request := ChatRequest{
		Query: "What is OWI?",
		History: []ChatMessage{
			NewUserMessage("hello"),
			NewAssistantMessage("hi, ask me about Wisconsin law"),
		},
	}

	acc := NewStreamAccumulator()
	err := newTestClient(server.URL).ChatStream(context.Background(), request, acc.Add)
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	if acc.Content() != "Operating while intoxicated." {
		t.Errorf("Content = %q", acc.Content())
	}
	if len(acc.Sources) != 1 {
		t.Errorf("Sources = %+v", acc.Sources)
	}
	if acc.Confidence != ConfidenceHigh {
		t.Errorf("Confidence = %q", acc.Confidence)
	}
	if !acc.IsDone() {
		t.Error("Stream should be done")
	}
}

func TestClient_ChatStream_HTTPErrorBeforeEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	delivered := 0
	err := newTestClient(server.URL).ChatStream(context.Background(), ChatRequest{Query: "q"}, func(Event) {
		delivered++
	})
	if err == nil {
		t.Fatal("Expected error for 500 response")
	}
	if delivered != 0 {
		t.Errorf("No events should be delivered on HTTP error, got %d", delivered)
	}
}

func TestClient_ChatStreamChan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `data: {"type":"content","data":"answer"}`+"\n")
		fmt.Fprint(w, `data: {"type":"done"}`+"\n")
	}))
	defer server.Close()

	var events []Event
	for ev := range newTestClient(server.URL).ChatStreamChan(context.Background(), ChatRequest{Query: "q"}) {
		events = append(events, ev)
	}

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Content != "answer" || events[1].Type != EventDone {
		t.Errorf("Events = %+v", events)
	}
}

// =============================================================================
// SEARCH AND SOURCES TESTS
// =============================================================================

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.TopK != 5 || req.DocType != DocTypeStatute {
			t.Errorf("Request = %+v", req)
		}
		json.NewEncoder(w).Encode(SearchResponse{
			Results:       []SearchResult{{ID: "r1", Score: 0.8}},
			Query:         req.Query,
			EnhancedQuery: req.Query + " operating while intoxicated",
		})
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).Search(context.Background(), SearchRequest{
		Query:   "OWI penalties",
		TopK:    5,
		DocType: DocTypeStatute,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(resp.Results) != 1 || resp.EnhancedQuery == "" {
		t.Errorf("Response = %+v", resp)
	}
}

func TestClient_ListSources(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SourcesResponse{
			Sources:     []KnowledgeSource{{ID: "k1", Type: DocTypeStatute, Title: "Chapter 346", ChunkCount: 40}},
			TotalChunks: 40,
		})
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).ListSources(context.Background())
	if err != nil {
		t.Fatalf("ListSources failed: %v", err)
	}
	if resp.TotalChunks != 40 || len(resp.Sources) != 1 {
		t.Errorf("Response = %+v", resp)
	}
}

func TestClient_SourceDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sources/case_law" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(SourceDetailsResponse{Type: "case_law", TotalDocuments: 3})
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).SourceDetails(context.Background(), DocTypeCaseLaw)
	if err != nil {
		t.Fatalf("SourceDetails failed: %v", err)
	}
	if resp.TotalDocuments != 3 {
		t.Errorf("Response = %+v", resp)
	}
}

// =============================================================================
// DOCUMENT MANAGEMENT TESTS
// =============================================================================

func TestClient_ListDocuments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ListDocumentsResponse{
			Documents: []DocumentFile{{Filename: "owi_guide.pdf", Size: 2048, Type: "pdf"}},
			Count:     1,
		})
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if resp.Count != 1 || resp.Documents[0].Filename != "owi_guide.pdf" {
		t.Errorf("Response = %+v", resp)
	}
}

func TestClient_UploadDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("Not multipart: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("Missing file part: %v", err)
		}
		defer file.Close()
		if header.Filename != "notes.txt" {
			t.Errorf("Filename = %q", header.Filename)
		}
		json.NewEncoder(w).Encode(UploadResponse{Status: "uploaded", Filename: header.Filename, Size: header.Size})
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).UploadDocument(context.Background(), "notes.txt", strings.NewReader("field sobriety notes"))
	if err != nil {
		t.Fatalf("UploadDocument failed: %v", err)
	}
	if resp.Status != "uploaded" || resp.Filename != "notes.txt" {
		t.Errorf("Response = %+v", resp)
	}
}

func TestClient_DeleteDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("Method = %q", r.Method)
		}
		if r.URL.Path != "/api/documents/old%20notes.txt" && r.URL.EscapedPath() != "/api/documents/old%20notes.txt" {
			t.Errorf("Path = %q", r.URL.EscapedPath())
		}
		json.NewEncoder(w).Encode(DeleteResponse{Status: "deleted", Filename: "old notes.txt"})
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).DeleteDocument(context.Background(), "old notes.txt")
	if err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if resp.Status != "deleted" {
		t.Errorf("Response = %+v", resp)
	}
}

func TestClient_DeleteDocument_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).DeleteDocument(context.Background(), "missing.txt")
	if !IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
}

func TestClient_IngestDocuments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ingest" || r.Method != http.MethodPost {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(IngestResponse{Status: "complete", DocumentsLoaded: 4, ChunksCreated: 120})
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).IngestDocuments(context.Background())
	if err != nil {
		t.Fatalf("IngestDocuments failed: %v", err)
	}
	if resp.ChunksCreated != 120 {
		t.Errorf("Response = %+v", resp)
	}
}
