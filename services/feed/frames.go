// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package feed

import (
	"encoding/json"
	"strings"
	"time"
)

// =============================================================================
// Frame Kinds
// =============================================================================

// FrameKind classifies a content frame by how complete its payload is.
type FrameKind string

const (
	// KindFull is a complete tweet payload (provider type "user-full-tweet").
	KindFull FrameKind = "full"

	// KindPartial is a lighter-weight update referencing an existing tweet.
	KindPartial FrameKind = "partial-update"

	// KindOther is any content frame the classifier does not recognize.
	KindOther FrameKind = "other"
)

// systemTypes are provider message types that never enter the content buffer.
// They carry connection state and subscription rosters, not tweet data.
var systemTypes = map[string]bool{
	"connected":    true,
	"subscribed":   true,
	"unsubscribed": true,
	"error":        true,
	"ping":         true,
	"pong":         true,
}

// classifyKind maps a provider type tag to a FrameKind.
func classifyKind(typeTag string) FrameKind {
	switch {
	case typeTag == "user-full-tweet":
		return KindFull
	case strings.Contains(typeTag, "update"):
		return KindPartial
	default:
		return KindOther
	}
}

// =============================================================================
// Data Types
// =============================================================================

// Subscription is one account being watched on the push channel.
// The set of subscriptions is owned by the server; the channel's local
// view is replaced wholesale whenever a roster frame arrives.
type Subscription struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ScreenName string `json:"screenName"`
}

// Roster is the server-declared subscription state for one connection.
type Roster struct {
	Users []Subscription `json:"users"`
	Count int            `json:"count"`
	Limit int            `json:"limit"`
}

// ContentFrame is one received push message describing a tweet or a
// tweet update. Payload keeps the provider-shaped JSON verbatim so
// downstream consumers can extract whatever fields they need.
type ContentFrame struct {
	// FrameID is client-generated and unique per received frame.
	FrameID string `json:"frameId"`

	// ContentID is the provider-assigned tweet id the frame refers to.
	// Empty when the payload carries no recognizable id; such frames
	// are never deduplicated against one another.
	ContentID string `json:"contentId"`

	// Type is the provider's raw type tag.
	Type string `json:"type"`

	// Kind is the classification derived from Type.
	Kind FrameKind `json:"kind"`

	// Payload is the full frame body as received.
	Payload json.RawMessage `json:"payload"`

	ReceivedAt time.Time `json:"receivedAt"`
}

// =============================================================================
// Wire Envelope
// =============================================================================

// controlFrame is the client → server control message shape.
type controlFrame struct {
	Type          string `json:"type"`
	AccountHandle string `json:"accountHandle"`
}

// statusRef is the subset of a nested tweet status used for identity.
type statusRef struct {
	IDStr string      `json:"id_str"`
	ID    json.Number `json:"id"`
}

func (s *statusRef) id() string {
	if s == nil {
		return ""
	}
	if s.IDStr != "" {
		return s.IDStr
	}
	return s.ID.String()
}

// frameEnvelope is the superset of fields the channel inspects on any
// inbound frame. Content payloads carry far more; everything is kept
// verbatim in ContentFrame.Payload.
type frameEnvelope struct {
	Type string `json:"type"`

	Data struct {
		Status  *statusRef `json:"status"`
		TweetID string     `json:"tweet_id"`
	} `json:"data"`

	Status *statusRef `json:"status"`
	IDStr  string     `json:"id_str"`

	// System-frame fields. When SubscribedUsers is present the local
	// subscription view is replaced, not merged.
	SubscribedUsers    []Subscription `json:"subscribedUsers"`
	Subscriptions      *int           `json:"subscriptions"`
	SubscriptionsLimit *int           `json:"subscriptionsLimit"`
	Message            string         `json:"message"`
}

func parseEnvelope(raw []byte) (*frameEnvelope, error) {
	var env frameEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// contentID extracts the tweet id used for deduplication. Checks the
// nested data.status first (the "user-full-tweet" shape), then
// top-level fallbacks. Returns "" when no id is present.
func (e *frameEnvelope) contentID() string {
	if id := e.Data.Status.id(); id != "" {
		return id
	}
	if e.Data.TweetID != "" {
		return e.Data.TweetID
	}
	if id := e.Status.id(); id != "" {
		return id
	}
	return e.IDStr
}
