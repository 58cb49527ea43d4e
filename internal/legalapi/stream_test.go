// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package legalapi

import (
	"context"
	"io"
	"strings"
	"testing"
)

// chunkedReader yields a fixed byte stream in caller-chosen chunk sizes,
// simulating arbitrary network fragmentation.
type chunkedReader struct {
	data   []byte
	sizes  []int
	offset int
	call   int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if r.offset >= len(r.data) {
		return 0, io.EOF
	}
	size := len(r.data) - r.offset
	if r.call < len(r.sizes) && r.sizes[r.call] < size {
		size = r.sizes[r.call]
	}
	if size > len(p) {
		size = len(p)
	}
	n := copy(p, r.data[r.offset:r.offset+size])
	r.offset += n
	r.call++
	return n, nil
}

func collectEvents(t *testing.T, r io.Reader) []Event {
	t.Helper()
	var events []Event
	reader := NewStreamReader(r)
	err := reader.Process(context.Background(), func(ev Event) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	return events
}

const sampleStream = `data: {"type":"sources","data":[{"id":"chunk-1","text":"346.63 Operating under influence","metadata":{"type":"statute","title":"Wis. Stat. 346.63","statute_num":"346.63"},"score":0.92}]}
data: {"type":"metadata","data":{"confidence":"high","is_sensitive":false}}
data: {"type":"content","data":"OWI means "}
data: {"type":"content","data":"operating while intoxicated."}
data: {"type":"done"}
`

func TestStreamReader_FullStream(t *testing.T) {
	events := collectEvents(t, strings.NewReader(sampleStream))

	if len(events) != 5 {
		t.Fatalf("Expected 5 events, got %d", len(events))
	}
	if events[0].Type != EventSources || len(events[0].Sources) != 1 {
		t.Errorf("First event: got %+v, want one source", events[0])
	}
	if events[0].Sources[0].Metadata.StatuteNum != "346.63" {
		t.Errorf("Statute number not decoded: %+v", events[0].Sources[0].Metadata)
	}
	if events[1].Type != EventMetadata || events[1].Metadata == nil {
		t.Fatalf("Second event: got %+v, want metadata", events[1])
	}
	if events[1].Metadata.Confidence != ConfidenceHigh {
		t.Errorf("Confidence = %q, want high", events[1].Metadata.Confidence)
	}
	if events[2].Content != "OWI means " {
		t.Errorf("Content fragment = %q", events[2].Content)
	}
	if events[4].Type != EventDone {
		t.Errorf("Last event = %v, want done", events[4].Type)
	}
}

// Decoded events must not depend on how the bytes were fragmented.
func TestStreamReader_FragmentationInvariance(t *testing.T) {
	want := collectEvents(t, strings.NewReader(sampleStream))

	// Deliver the stream one byte at a time, then in a few awkward splits
	// that land mid-line and mid-rune of the JSON payload.
	fragmentations := [][]int{
		nil, // single read
		{1}, // 1 byte then the rest
	}
	for i := 1; i < len(sampleStream); i++ {
		fragmentations = append(fragmentations, []int{i})
	}
	oneByOne := make([]int, len(sampleStream))
	for i := range oneByOne {
		oneByOne[i] = 1
	}
	fragmentations = append(fragmentations, oneByOne)

	for _, sizes := range fragmentations {
		r := &chunkedReader{data: []byte(sampleStream), sizes: sizes}
		got := collectEvents(t, r)

		if len(got) != len(want) {
			t.Fatalf("sizes %v: got %d events, want %d", sizes, len(got), len(want))
		}
		for i := range got {
			if got[i].Type != want[i].Type || got[i].Content != want[i].Content {
				t.Errorf("sizes %v: event %d = %+v, want %+v", sizes, i, got[i], want[i])
			}
		}
	}
}

func TestStreamReader_SkipsMalformedLines(t *testing.T) {
	stream := "data: {\"type\":\"content\",\"data\":\"first\"}\n" +
		"data: {not json at all\n" +
		"data: \n" +
		": comment line\n" +
		"\n" +
		"data: {\"type\":\"content\",\"data\":\"second\"}\n" +
		"data: {\"type\":\"done\"}\n"

	events := collectEvents(t, strings.NewReader(stream))

	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d: %+v", len(events), events)
	}
	if events[0].Content != "first" || events[1].Content != "second" {
		t.Errorf("Content events wrong: %+v", events)
	}
}

func TestStreamReader_FlushesTrailingLine(t *testing.T) {
	// No trailing newline after the final event.
	stream := "data: {\"type\":\"content\",\"data\":\"partial answer\"}\n" +
		"data: {\"type\":\"done\"}"

	events := collectEvents(t, strings.NewReader(stream))

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[1].Type != EventDone {
		t.Errorf("Trailing buffered event not decoded: %+v", events)
	}
}

func TestStreamReader_IgnoresNonDataLines(t *testing.T) {
	stream := "event: message\n" +
		"id: 42\n" +
		"data: {\"type\":\"done\"}\n"

	events := collectEvents(t, strings.NewReader(stream))

	if len(events) != 1 || events[0].Type != EventDone {
		t.Errorf("Expected only the done event, got %+v", events)
	}
}

func TestStreamReader_UnknownEventTypeDropped(t *testing.T) {
	stream := "data: {\"type\":\"heartbeat\",\"data\":{}}\n" +
		"data: {\"type\":\"done\"}\n"

	events := collectEvents(t, strings.NewReader(stream))

	if len(events) != 1 || events[0].Type != EventDone {
		t.Errorf("Unknown event type should be dropped, got %+v", events)
	}
}

func TestStreamReader_ErrorEvent(t *testing.T) {
	stream := "data: {\"type\":\"error\",\"data\":\"retrieval backend unavailable\"}\n"

	events := collectEvents(t, strings.NewReader(stream))

	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Type != EventError || events[0].Message != "retrieval backend unavailable" {
		t.Errorf("Error event wrong: %+v", events[0])
	}
	if !events[0].Terminal() {
		t.Error("Error event should be terminal")
	}
}

func TestStreamReader_EmptyStream(t *testing.T) {
	events := collectEvents(t, strings.NewReader(""))
	if len(events) != 0 {
		t.Errorf("Expected no events, got %+v", events)
	}
}

func TestStreamReader_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := NewStreamReader(strings.NewReader(sampleStream))
	err := reader.Process(ctx, func(Event) {})
	if err != context.Canceled {
		t.Errorf("Process err = %v, want context.Canceled", err)
	}
}

func TestProcessUntilDone_StopsAtTerminal(t *testing.T) {
	// Content after done should not be delivered.
	stream := "data: {\"type\":\"content\",\"data\":\"answer\"}\n" +
		"data: {\"type\":\"done\"}\n" +
		"data: {\"type\":\"content\",\"data\":\"stray\"}\n"

	var events []Event
	reader := NewStreamReader(strings.NewReader(stream))
	err := reader.ProcessUntilDone(context.Background(), func(ev Event) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("ProcessUntilDone failed: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d: %+v", len(events), events)
	}
	if events[1].Type != EventDone {
		t.Errorf("Last delivered event = %v, want done", events[1].Type)
	}
}

// =============================================================================
// ACCUMULATOR TESTS
// =============================================================================

func TestStreamAccumulator(t *testing.T) {
	acc := NewStreamAccumulator()

	acc.Add(Event{Type: EventSources, Sources: []Source{{ID: "s1"}}})
	acc.Add(Event{Type: EventMetadata, Metadata: &StreamMetadata{Confidence: ConfidenceMedium, IsSensitive: true}})
	acc.Add(Event{Type: EventContent, Content: "OWI stands for "})
	acc.Add(Event{Type: EventContent, Content: "operating while intoxicated."})
	acc.Add(Event{Type: EventDone})

	if acc.Content() != "OWI stands for operating while intoxicated." {
		t.Errorf("Content = %q", acc.Content())
	}
	if len(acc.Sources) != 1 || acc.Sources[0].ID != "s1" {
		t.Errorf("Sources = %+v", acc.Sources)
	}
	if acc.Confidence != ConfidenceMedium || !acc.IsSensitive {
		t.Errorf("Metadata not applied: %+v", acc)
	}
	if !acc.IsDone() || acc.Error() != nil {
		t.Errorf("Done=%v err=%v", acc.IsDone(), acc.Error())
	}
}

func TestStreamAccumulator_IgnoresEventsAfterDone(t *testing.T) {
	acc := NewStreamAccumulator()
	acc.Add(Event{Type: EventContent, Content: "answer"})
	acc.Add(Event{Type: EventDone})
	acc.Add(Event{Type: EventContent, Content: " stray"})

	if acc.Content() != "answer" {
		t.Errorf("Content = %q, want %q", acc.Content(), "answer")
	}
}

func TestStreamAccumulator_Error(t *testing.T) {
	acc := NewStreamAccumulator()
	acc.Add(Event{Type: EventError, Message: "index offline"})

	if acc.Error() == nil {
		t.Fatal("Expected error")
	}
	if !acc.IsDone() {
		t.Error("Error should mark the accumulator done")
	}
}
