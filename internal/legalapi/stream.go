// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package legalapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
)

// =============================================================================
// STREAM EVENTS
// =============================================================================

// EventType discriminates streaming chat events.
type EventType string

const (
	EventSources  EventType = "sources"  // retrieved sources, sent once before content
	EventMetadata EventType = "metadata" // confidence and sensitivity rating
	EventContent  EventType = "content"  // answer text fragment
	EventDone     EventType = "done"     // stream completed normally
	EventError    EventType = "error"    // backend-reported failure, terminal
)

// StreamMetadata is the payload of a metadata event.
type StreamMetadata struct {
	Confidence  ConfidenceLevel `json:"confidence"`
	IsSensitive bool            `json:"is_sensitive"`
}

// Event is one decoded streaming chat event. Only the field matching Type
// is populated.
type Event struct {
	Type     EventType
	Sources  []Source        // EventSources
	Metadata *StreamMetadata // EventMetadata
	Content  string          // EventContent
	Message  string          // EventError
}

// Terminal reports whether no further events follow for this answer.
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// EventCallback is called for each event, in arrival order.
type EventCallback func(event Event)

// =============================================================================
// STREAM READER
// =============================================================================

// eventPrefix marks payload lines in the server-sent event stream.
const eventPrefix = "data: "

// StreamReader decodes the backend's event stream. Bytes arrive in
// arbitrarily sized chunks; the reader buffers partial lines so an event
// split across reads decodes identically to one delivered whole.
type StreamReader struct {
	reader *bufio.Reader
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	eventCount  int
}

// NewStreamReader creates a stream reader over a response body.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader: bufio.NewReader(r),
	}
}

// Process reads the stream and calls the callback for each decoded event.
// Blocks until the stream ends or the context is cancelled. A trailing
// line without a final newline is still decoded before returning.
func (s *StreamReader) Process(ctx context.Context, callback EventCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			event, err := s.readEvent()
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}

			if event != nil {
				s.eventCount++
				callback(*event)
			}
		}
	}
}

// ProcessUntilDone is Process but returns as soon as a terminal event has
// been delivered, without draining the rest of the stream.
func (s *StreamReader) ProcessUntilDone(ctx context.Context, callback EventCallback) error {
	done := false
	err := s.Process(ctx, func(event Event) {
		if done {
			return
		}
		callback(event)
		if event.Terminal() {
			done = true
		}
	})
	if done {
		return nil
	}
	return err
}

// readEvent reads and parses a single line from the stream.
// Returns (nil, nil) for blank lines, comment lines and malformed JSON,
// so a single bad event never aborts the stream.
func (s *StreamReader) readEvent() (*Event, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return nil, io.EOF
		}
		// Decode the unterminated last line before surfacing EOF
		if len(line) == 0 {
			return nil, err
		}
	}

	return decodeEventLine(line), nil
}

// decodeEventLine parses one raw stream line into an event.
// Lines without the "data: " prefix carry no payload.
func decodeEventLine(line []byte) *Event {
	trimmed := bytes.TrimSpace(line)
	if !bytes.HasPrefix(trimmed, []byte(eventPrefix)) {
		return nil
	}

	payload := bytes.TrimSpace(trimmed[len(eventPrefix):])
	if len(payload) == 0 {
		return nil
	}

	var raw struct {
		Type EventType       `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		// Skip malformed lines
		return nil
	}

	event := &Event{Type: raw.Type}
	switch raw.Type {
	case EventSources:
		if err := json.Unmarshal(raw.Data, &event.Sources); err != nil {
			return nil
		}
	case EventMetadata:
		var meta StreamMetadata
		if err := json.Unmarshal(raw.Data, &meta); err != nil {
			return nil
		}
		event.Metadata = &meta
	case EventContent:
		if err := json.Unmarshal(raw.Data, &event.Content); err != nil {
			return nil
		}
	case EventDone:
		// No payload
	case EventError:
		if err := json.Unmarshal(raw.Data, &event.Message); err != nil {
			return nil
		}
	default:
		// Unknown event kinds are dropped rather than surfaced
		return nil
	}

	return event
}

// EventCount returns the number of events delivered so far.
func (s *StreamReader) EventCount() int {
	return s.eventCount
}

// =============================================================================
// STREAM ACCUMULATOR
// =============================================================================

// StreamAccumulator collects events into a complete answer. Useful for
// callers that want streaming transport without incremental display.
type StreamAccumulator struct {
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	content     strings.Builder
	Sources     []Source
	Confidence  ConfidenceLevel
	IsSensitive bool
	Done        bool
	Err         error
}

// NewStreamAccumulator creates an empty accumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{}
}

// Add folds one event into the accumulated answer. Events after a
// terminal event are ignored.
func (a *StreamAccumulator) Add(event Event) {
	if a.Done {
		return
	}

	switch event.Type {
	case EventSources:
		a.Sources = event.Sources
	case EventMetadata:
		if event.Metadata != nil {
			a.Confidence = event.Metadata.Confidence
			a.IsSensitive = event.Metadata.IsSensitive
		}
	case EventContent:
		a.content.WriteString(event.Content)
	case EventDone:
		a.Done = true
	case EventError:
		a.Err = &ClientError{Type: ErrTypeStream, Message: event.Message}
		a.Done = true
	}
}

// Content returns the accumulated answer text.
func (a *StreamAccumulator) Content() string {
	return a.content.String()
}

// IsDone reports whether a terminal event arrived.
func (a *StreamAccumulator) IsDone() bool {
	return a.Done
}

// Error returns the backend-reported failure, if any.
func (a *StreamAccumulator) Error() error {
	return a.Err
}
