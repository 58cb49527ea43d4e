// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/morganforge/lexrun/internal/legalapi"
	"github.com/morganforge/lexrun/internal/storage"
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is one turn of the in-memory transcript.
type Message struct {
	ID          string
	Role        string // "user" or "assistant"
	Content     string
	Sources     []legalapi.Source
	Confidence  legalapi.ConfidenceLevel
	IsSensitive bool
	IsStreaming bool
	Timestamp   time.Time
}

// =============================================================================
// CHAT CONTROLLER
// =============================================================================

// StreamSender is the backend surface the controller needs. Satisfied by
// *legalapi.Client.
type StreamSender interface {
	ChatStream(ctx context.Context, request legalapi.ChatRequest, callback legalapi.EventCallback) error
}

// Controller manages the transcript of one chat conversation.
//
// Methods are safe for concurrent use. Concurrent SendMessage calls are
// not serialized against each other; each stream only touches its own
// assistant placeholder, so interleaved sends produce interleaved but
// internally consistent messages.
type Controller struct {
	mu sync.Mutex

	client StreamSender
	store  *storage.ConversationStore

	conversationID string
	messages       []Message
	lastError      string
	sending        bool
	observer       legalapi.EventCallback
}

// NewController creates a controller with a fresh conversation ID.
// The store may be nil, which disables persistence.
func NewController(client StreamSender, store *storage.ConversationStore) *Controller {
	return &Controller{
		client:         client,
		store:          store,
		conversationID: storage.NewConversationID(),
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// ConversationID returns the ID the transcript persists under.
func (c *Controller) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// Messages returns a copy of the transcript.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// LastError returns the most recent send failure, empty if the last send
// succeeded. Cleared at the start of each send and by Clear.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// IsSending reports whether a SendMessage call is in flight.
func (c *Controller) IsSending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// SetEventObserver registers a callback invoked for every stream event
// after it has been folded into the transcript, letting callers echo
// tokens as they arrive. Pass nil to remove the observer.
func (c *Controller) SetEventObserver(fn legalapi.EventCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = fn
}

// =============================================================================
// SEND
// =============================================================================

// SendMessage sends a user query and streams the assistant's answer into
// the transcript. The user message and a streaming placeholder are
// appended before any network I/O, so the transcript reflects the send
// even if the backend is down. On any failure the placeholder becomes a
// terminal error message; the returned error carries the same failure.
// There is no retry.
func (c *Controller) SendMessage(ctx context.Context, query string) error {
	c.mu.Lock()
	c.lastError = ""
	c.sending = true

	// History is the transcript before this send.
	history := make([]legalapi.ChatMessage, 0, len(c.messages))
	for _, m := range c.messages {
		history = append(history, legalapi.ChatMessage{Role: m.Role, Content: m.Content})
	}

	now := time.Now()
	c.messages = append(c.messages, Message{
		ID:        uuid.NewString(),
		Role:      "user",
		Content:   query,
		Timestamp: now,
	})

	assistantID := uuid.NewString()
	c.messages = append(c.messages, Message{
		ID:          assistantID,
		Role:        "assistant",
		IsStreaming: true,
		Timestamp:   now,
	})
	c.mu.Unlock()

	c.persist()

	err := c.client.ChatStream(ctx, legalapi.ChatRequest{Query: query, History: history},
		func(event legalapi.Event) {
			c.applyEvent(assistantID, event)

			c.mu.Lock()
			observer := c.observer
			c.mu.Unlock()
			// Observer runs outside the lock; it may call back into accessors.
			if observer != nil {
				observer(event)
			}
		})

	if err != nil {
		c.failMessage(assistantID, err.Error())
	}

	c.mu.Lock()
	c.sending = false
	c.mu.Unlock()

	return err
}

// applyEvent folds one stream event into the assistant placeholder.
// If the placeholder is gone (the transcript was cleared mid-stream) the
// event is dropped; that is the cancellation semantic.
func (c *Controller) applyEvent(assistantID string, event legalapi.Event) {
	c.mu.Lock()

	idx := c.indexOf(assistantID)
	if idx < 0 {
		c.mu.Unlock()
		return
	}

	msg := &c.messages[idx]
	if !msg.IsStreaming {
		// Already settled by done or error; late events are ignored.
		c.mu.Unlock()
		return
	}

	switch event.Type {
	case legalapi.EventSources:
		msg.Sources = event.Sources
	case legalapi.EventMetadata:
		if event.Metadata != nil {
			msg.Confidence = event.Metadata.Confidence
			msg.IsSensitive = event.Metadata.IsSensitive
		}
	case legalapi.EventContent:
		msg.Content += event.Content
	case legalapi.EventDone:
		msg.IsStreaming = false
	case legalapi.EventError:
		msg.Content = "Error: " + event.Message
		msg.IsStreaming = false
		c.lastError = event.Message
	}

	c.mu.Unlock()
	c.persist()
}

// failMessage settles the placeholder into a terminal error state after a
// transport or decode failure. A no-op if the placeholder is gone or
// already settled, so a backend error event followed by a transport error
// does not double-report.
func (c *Controller) failMessage(assistantID, errMsg string) {
	c.mu.Lock()

	idx := c.indexOf(assistantID)
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	msg := &c.messages[idx]
	if !msg.IsStreaming {
		c.mu.Unlock()
		return
	}

	msg.Content = "Error: " + errMsg
	msg.IsStreaming = false
	c.lastError = errMsg

	c.mu.Unlock()
	c.persist()
}

// indexOf returns the transcript index of a message ID, -1 if absent.
// Callers must hold c.mu.
func (c *Controller) indexOf(id string) int {
	for i := range c.messages {
		if c.messages[i].ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// persist auto-saves the transcript. Failures are logged, never surfaced;
// losing a save must not break an active stream.
func (c *Controller) persist() {
	if c.store == nil {
		return
	}

	c.mu.Lock()
	id := c.conversationID
	stored := make([]storage.StoredMessage, 0, len(c.messages))
	for _, m := range c.messages {
		stored = append(stored, storage.StoredMessage{
			ID:          m.ID,
			Role:        m.Role,
			Content:     m.Content,
			Sources:     m.Sources,
			Confidence:  m.Confidence,
			IsSensitive: m.IsSensitive,
			IsStreaming: m.IsStreaming,
			Timestamp:   m.Timestamp,
		})
	}
	c.mu.Unlock()

	if err := c.store.AutoSave(id, stored); err != nil {
		log.Printf("session: auto-save of %s failed: %v", id, err)
	}
}

// =============================================================================
// CLEAR AND RESUME
// =============================================================================

// Clear empties the transcript and starts a new conversation ID. The
// persisted record of the old conversation is kept. A stream still in
// flight keeps running but its events no longer match any message, so
// they are dropped.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
	c.lastError = ""
	c.conversationID = storage.NewConversationID()
}

// Resume loads a stored conversation into the transcript and adopts its
// ID, so further sends extend the same record.
func (c *Controller) Resume(id string) error {
	if c.store == nil {
		return storage.ErrConversationNotFound
	}

	conv, err := c.store.Load(id)
	if err != nil {
		return err
	}

	messages := make([]Message, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		messages = append(messages, Message{
			ID:          m.ID,
			Role:        m.Role,
			Content:     m.Content,
			Sources:     m.Sources,
			Confidence:  m.Confidence,
			IsSensitive: m.IsSensitive,
			Timestamp:   m.Timestamp,
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversationID = conv.ID
	c.messages = messages
	c.lastError = ""
	return nil
}
