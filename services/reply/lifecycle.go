// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package reply manages the generate → edit → send workflow for one
// tweet at a time.
//
// # State Machine
//
//	Idle → Generating → {Drafted, Skipped, Errored}
//	Drafted → Sending → Sent
//
// Skipped and Sent are terminal. Errored is not: a later generate
// clears it. A failed send re-enters Drafted with the edited text
// preserved, so the operator can resend without regenerating.
//
// # Concurrency
//
// Transitions for one content id are strictly serialized: while a
// generate or send is in flight, further operations on that id are
// rejected with ErrBusy. Operations on different ids are fully
// independent and run concurrently.
package reply

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/kolwatch/services/composer"
	"github.com/AleutianAI/kolwatch/services/posting"
)

// Status is the workflow state of one content item.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusGenerating Status = "generating"
	StatusDrafted    Status = "drafted"
	StatusSkipped    Status = "skipped"
	StatusSending    Status = "sending"
	StatusSent       Status = "sent"
	StatusErrored    Status = "errored"
)

// terminal reports whether no further operations are permitted.
func (s Status) terminal() bool {
	return s == StatusSkipped || s == StatusSent
}

// State is the per-content-id reply state. Session-scoped; nothing is
// persisted durably.
type State struct {
	ContentID string `json:"contentId"`
	Status    Status `json:"status"`

	// DraftText is the composer's original draft; EditedText starts
	// equal and is the only copy editing mutates.
	DraftText  string `json:"draftText,omitempty"`
	EditedText string `json:"editedText,omitempty"`

	SkipReason string `json:"skipReason,omitempty"`
	LastError  string `json:"lastError,omitempty"`

	// PostedID is the provider id of the sent reply.
	PostedID string `json:"postedId,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// GenerateRequest carries the inputs for drafting one reply.
type GenerateRequest struct {
	ContentID         string `json:"contentId" binding:"required"`
	SourceText        string `json:"sourceText" binding:"required"`
	SourceAuthor      string `json:"sourceAuthor"`
	StyleInstructions string `json:"styleInstructions"`
	GatingCondition   string `json:"gatingCondition"`
}

// Publisher is the slice of the posting path the lifecycle needs.
type Publisher interface {
	PostReply(ctx context.Context, accountID, text, parentContentID string) (*posting.PostResult, error)
}

// Manager owns the per-content-id state machines.
type Manager struct {
	composer  composer.Composer
	publisher Publisher
	log       *slog.Logger

	mu    sync.Mutex
	items map[string]*item
}

type item struct {
	state State

	// inFlight serializes operations per content id.
	inFlight bool
}

// NewManager creates a Manager drafting with c and sending through p.
func NewManager(c composer.Composer, p Publisher, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		composer:  c,
		publisher: p,
		log:       log,
		items:     make(map[string]*item),
	}
}

// Generate drafts a reply for a content item.
//
// Permitted from Idle, Drafted (regenerate) and Errored (clears the
// error). Rejected with ErrBusy while another operation is in flight
// for the id, and with ErrTerminalState once the item is Skipped or
// Sent.
//
// A composer skip decision transitions to Skipped with the reason
// stored; that is terminal. A composer failure transitions to Errored,
// which a later Generate may retry.
func (m *Manager) Generate(ctx context.Context, req GenerateRequest) (*State, error) {
	m.mu.Lock()
	it := m.ensureLocked(req.ContentID)
	if it.inFlight {
		m.mu.Unlock()
		return nil, ErrBusy
	}
	if it.state.Status.terminal() {
		m.mu.Unlock()
		return nil, ErrTerminalState
	}
	it.inFlight = true
	it.state.Status = StatusGenerating
	it.state.LastError = ""
	it.state.UpdatedAt = time.Now()
	m.mu.Unlock()

	result, err := m.composer.ComposeReply(ctx, composer.ComposeRequest{
		StyleInstructions: req.StyleInstructions,
		SourceText:        req.SourceText,
		SourceAuthor:      req.SourceAuthor,
		GatingCondition:   req.GatingCondition,
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	it.inFlight = false
	it.state.UpdatedAt = time.Now()

	switch {
	case err != nil:
		it.state.Status = StatusErrored
		it.state.LastError = err.Error()
		m.log.Warn("reply generation failed",
			"content_id", req.ContentID, "error", err)
	case !result.ShouldReply:
		it.state.Status = StatusSkipped
		it.state.SkipReason = result.SkipReason
		m.log.Info("reply gated out",
			"content_id", req.ContentID, "reason", result.SkipReason)
	default:
		it.state.Status = StatusDrafted
		it.state.DraftText = result.Reply
		it.state.EditedText = result.Reply
	}

	s := it.state
	return &s, nil
}

// EditDraft replaces the editable copy. Permitted only in Drafted;
// the original draft is untouched and the status does not change.
func (m *Manager) EditDraft(contentID, newText string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[contentID]
	if !ok {
		return nil, ErrUnknownContent
	}
	if it.inFlight {
		return nil, ErrBusy
	}
	if it.state.Status != StatusDrafted {
		return nil, ErrNotDrafted
	}

	it.state.EditedText = newText
	it.state.UpdatedAt = time.Now()
	s := it.state
	return &s, nil
}

// Send posts the edited draft as a reply to the content item.
//
// Preconditions (rejected without a state transition): the item must
// be Drafted with a non-empty edited copy, and no operation may be in
// flight for the id.
//
// On success the item becomes Sent, which is terminal. On failure it
// re-enters Drafted with the edited copy preserved and the error
// recorded, so a fresh Send may retry.
func (m *Manager) Send(ctx context.Context, contentID, accountID string) (*State, error) {
	m.mu.Lock()
	it, ok := m.items[contentID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrUnknownContent
	}
	if it.inFlight {
		m.mu.Unlock()
		return nil, ErrBusy
	}
	if it.state.Status != StatusDrafted {
		m.mu.Unlock()
		return nil, ErrNotDrafted
	}
	text := it.state.EditedText
	if strings.TrimSpace(text) == "" {
		m.mu.Unlock()
		return nil, ErrEmptyDraft
	}
	it.inFlight = true
	it.state.Status = StatusSending
	it.state.UpdatedAt = time.Now()
	m.mu.Unlock()

	result, err := m.publisher.PostReply(ctx, accountID, text, contentID)

	m.mu.Lock()
	defer m.mu.Unlock()
	it.inFlight = false
	it.state.UpdatedAt = time.Now()

	if err != nil {
		// Drafted-derived data is preserved; the operator may resend.
		it.state.Status = StatusDrafted
		it.state.LastError = err.Error()
		m.log.Warn("reply send failed",
			"content_id", contentID, "account_id", accountID, "error", err)
		s := it.state
		return &s, err
	}

	it.state.Status = StatusSent
	it.state.LastError = ""
	it.state.PostedID = result.TweetID
	m.log.Info("reply sent",
		"content_id", contentID, "posted_id", result.TweetID)
	s := it.state
	return &s, nil
}

// State returns a copy of the item's state, if it exists.
func (m *Manager) State(contentID string) (*State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[contentID]
	if !ok {
		return nil, false
	}
	s := it.state
	return &s, true
}

// States returns a snapshot of all item states.
func (m *Manager) States() map[string]State {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]State, len(m.items))
	for id, it := range m.items {
		out[id] = it.state
	}
	return out
}

// ensureLocked creates the item lazily on first generate.
func (m *Manager) ensureLocked(contentID string) *item {
	it, ok := m.items[contentID]
	if !ok {
		it = &item{state: State{ContentID: contentID, Status: StatusIdle}}
		m.items[contentID] = it
	}
	return it
}
