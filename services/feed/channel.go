// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package feed implements the real-time tweet subscription channel.
//
// # Description
//
// The channel maintains a single persistent websocket connection to the
// tweet push provider, manages subscription membership via fire-and-forget
// control frames, classifies and deduplicates incoming content frames into
// a bounded newest-first buffer, and owns a bounded linear-retry reconnect
// policy.
//
// # Connection State Machine
//
//	Disconnected → Connecting → Connected → (Disconnected | Error)
//
// Error is transient: it records a transport fault but the subsequent
// close event is what drives the reconnect policy. An explicit
// Disconnect() suppresses reconnection by pre-setting the attempt
// counter to its maximum.
//
// # Subscription Model
//
// Subscribe/Unsubscribe send control frames only when the transport is
// open; otherwise they are silently dropped. The server is the source
// of truth: system frames carrying a subscription roster replace the
// channel's local view wholesale. The last-acknowledged roster is
// replayed as a burst of subscribe frames after every reconnect.
//
// # Error Absorption
//
// Malformed frames are dropped and counted, never surfaced. Transport
// errors are exposed only through Status()/LastError(); no channel
// operation returns a transport error to the caller.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/kolwatch/pkg/validation"
)

// Status is the channel connection state.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// =============================================================================
// Configuration
// =============================================================================

// Config configures a Channel.
type Config struct {
	// URL is the websocket endpoint of the push provider. Required.
	URL string

	// AutoConnect opens the connection from New instead of waiting
	// for an explicit Connect call. Default: false.
	AutoConnect bool

	// ReconnectInterval is the fixed delay between reconnect
	// attempts. The policy is bounded linear retry, not exponential
	// backoff. Default: 3s.
	ReconnectInterval time.Duration

	// MaxReconnectAttempts bounds consecutive automatic reconnects.
	// Once exhausted the channel stays Disconnected until the
	// operator calls Connect again. Default: 5.
	MaxReconnectAttempts int

	// BufferCapacity bounds the content buffer.
	// Default: DefaultBufferCapacity.
	BufferCapacity int

	// Dialer opens the transport. Default: GorillaDialer.
	Dialer Dialer

	// Logger receives frame-level diagnostics. Default: slog.Default().
	Logger *slog.Logger

	// Metrics is optional; nil disables instrumentation.
	Metrics *Metrics
}

func (cfg *Config) applyDefaults() {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = 3 * time.Second
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 5
	}
	if cfg.Dialer == nil {
		cfg.Dialer = GorillaDialer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

// =============================================================================
// Channel
// =============================================================================

// Channel is one logical push connection per operator session.
//
// All exported methods are safe for concurrent use. Content frames are
// processed in arrival order on the single read loop, which the dedup
// rule depends on.
type Channel struct {
	cfg    Config
	log    *slog.Logger
	buffer *FrameBuffer

	mu        sync.Mutex
	conn      Conn
	status    Status
	lastError string

	// generation invalidates in-flight dials and read loops from a
	// previous connection after Disconnect or a newer Connect.
	generation int

	attempts       int
	reconnectTimer *time.Timer

	// ctx is the context of the last explicit Connect; reconnects
	// reuse it so a cancelled session stops redialing.
	ctx context.Context

	roster Roster

	// replay is the subscription set re-sent after reconnect. It
	// tracks what was last sent as control frames and is replaced by
	// server rosters.
	replay map[string]struct{}
}

// New creates a Channel. If cfg.AutoConnect is set, the first
// connection attempt starts immediately in the background.
func New(cfg Config) *Channel {
	cfg.applyDefaults()
	c := &Channel{
		cfg:    cfg,
		log:    cfg.Logger,
		buffer: NewFrameBuffer(cfg.BufferCapacity),
		status: StatusDisconnected,
		replay: make(map[string]struct{}),
	}
	if cfg.AutoConnect {
		go func() { _ = c.Connect(context.Background()) }()
	}
	return c
}

// Connect opens the transport.
//
// # Description
//
// No-op when already connected. On success the reconnect attempt
// counter resets to zero and the current subscription set is replayed
// as a burst of subscribe control frames, so a fresh connection
// re-establishes all subscriptions without operator action.
//
// On dial failure the reconnect policy is armed exactly as it is for a
// dropped connection, and the dial error is returned for logging.
//
// ctx bounds the dial and is retained for automatic reconnects:
// cancelling it stops the redial loop.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.status == StatusConnected {
		c.mu.Unlock()
		return nil
	}
	c.stopTimerLocked()
	c.ctx = ctx
	c.generation++
	gen := c.generation
	c.status = StatusConnecting
	c.lastError = ""
	dial := c.cfg.Dialer
	url := c.cfg.URL
	c.mu.Unlock()

	conn, err := dial(ctx, url)

	c.mu.Lock()
	if gen != c.generation {
		// Disconnect (or a newer Connect) superseded this dial.
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return nil
	}
	if err != nil {
		c.status = StatusDisconnected
		c.lastError = err.Error()
		c.log.Warn("channel dial failed", "url", url, "error", err)
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		return err
	}

	c.conn = conn
	c.status = StatusConnected
	c.attempts = 0
	replay := make([]string, 0, len(c.replay))
	for h := range c.replay {
		replay = append(replay, h)
	}
	c.mu.Unlock()

	c.log.Info("channel connected", "url", url, "replayed_subscriptions", len(replay))
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.ConnectsTotal.Inc()
		c.cfg.Metrics.Connected.Set(1)
	}

	for _, h := range replay {
		c.writeControl("subscribe", h)
	}

	go c.readLoop(conn, gen)
	return nil
}

// Disconnect closes the channel for this session.
//
// Forces the attempt counter to its maximum so no automatic reconnect
// fires, cancels any pending reconnect timer, and closes the transport
// if open. A later explicit Connect starts a fresh session.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.attempts = c.cfg.MaxReconnectAttempts // suppress auto-reconnect
	c.stopTimerLocked()
	c.generation++
	conn := c.conn
	c.conn = nil
	c.status = StatusDisconnected
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.Connected.Set(0)
	}
	c.log.Info("channel disconnected")
}

// Subscribe sends a subscribe control frame for the handle.
//
// Fire-and-forget: if the transport is not open the frame is silently
// dropped. Subscription state is reconciled from server roster frames,
// not from local optimistic state. Returns an error only for an
// invalid handle.
func (c *Channel) Subscribe(handle string) error {
	h, err := validation.SanitizeHandle(handle)
	if err != nil {
		return err
	}
	if c.writeControl("subscribe", h) {
		c.mu.Lock()
		c.replay[h] = struct{}{}
		c.mu.Unlock()
	}
	return nil
}

// Unsubscribe sends an unsubscribe control frame for the handle.
// Fire-and-forget, same delivery semantics as Subscribe.
func (c *Channel) Unsubscribe(handle string) error {
	h, err := validation.SanitizeHandle(handle)
	if err != nil {
		return err
	}
	if c.writeControl("unsubscribe", h) {
		c.mu.Lock()
		delete(c.replay, h)
		c.mu.Unlock()
	}
	return nil
}

// writeControl writes a control frame if the transport is open.
// Returns whether the frame was written. Write failures are absorbed:
// they surface through status, and the read loop's close event drives
// reconnection.
func (c *Channel) writeControl(frameType, handle string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.status != StatusConnected {
		c.log.Debug("control frame dropped, channel not open",
			"type", frameType, "handle", handle)
		return false
	}
	if err := c.conn.WriteJSON(controlFrame{Type: frameType, AccountHandle: handle}); err != nil {
		c.status = StatusError
		c.lastError = err.Error()
		c.log.Warn("control frame write failed",
			"type", frameType, "handle", handle, "error", err)
		return false
	}
	return true
}

// Clear empties the content buffer without touching subscriptions or
// connection state.
func (c *Channel) Clear() {
	c.buffer.Clear()
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.BufferSize.Set(0)
	}
}

// Status returns the current connection state.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastError returns the most recent transport or server error message,
// or "" when none occurred since the last successful connect.
func (c *Channel) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// Roster returns the server-declared subscription state.
func (c *Channel) Roster() Roster {
	c.mu.Lock()
	defer c.mu.Unlock()

	users := make([]Subscription, len(c.roster.Users))
	copy(users, c.roster.Users)
	return Roster{Users: users, Count: c.roster.Count, Limit: c.roster.Limit}
}

// Frames returns a newest-first copy of the content buffer.
func (c *Channel) Frames() []*ContentFrame {
	return c.buffer.Frames()
}

// Frame returns the buffered frame for a content id, if present.
func (c *Channel) Frame(contentID string) (*ContentFrame, bool) {
	return c.buffer.Get(contentID)
}

// ReconnectAttempts returns the consecutive automatic reconnect count.
func (c *Channel) ReconnectAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// =============================================================================
// Read Loop
// =============================================================================

func (c *Channel) readLoop(conn Conn, gen int) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(gen, err)
			return
		}
		c.handleFrame(raw)
	}
}

// handleClose runs the reconnect policy for a dropped connection.
// Stale close events from superseded connections are ignored.
func (c *Channel) handleClose(gen int, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.status = StatusDisconnected
	if err != nil {
		c.lastError = err.Error()
	}
	c.log.Warn("channel closed", "error", err, "attempts", c.attempts)
	c.scheduleReconnectLocked()
	c.mu.Unlock()

	if c.cfg.Metrics != nil {
		c.cfg.Metrics.Connected.Set(0)
	}
}

// scheduleReconnectLocked arms the reconnect timer if attempts remain.
// Fixed delay: bounded linear retry, not exponential backoff.
func (c *Channel) scheduleReconnectLocked() {
	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.log.Warn("reconnect attempts exhausted",
			"max_attempts", c.cfg.MaxReconnectAttempts)
		return
	}
	c.attempts++
	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.ReconnectsTotal.Inc()
	}
	c.reconnectTimer = time.AfterFunc(c.cfg.ReconnectInterval, func() {
		if ctx.Err() != nil {
			return
		}
		_ = c.Connect(ctx)
	})
}

func (c *Channel) stopTimerLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

// =============================================================================
// Frame Handling
// =============================================================================

// handleFrame classifies one inbound frame. Malformed frames are
// dropped without affecting the connection.
func (c *Channel) handleFrame(raw []byte) {
	env, err := parseEnvelope(raw)
	if err != nil {
		c.log.Debug("malformed frame dropped", "error", err, "size", len(raw))
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.FramesMalformed.Inc()
		}
		return
	}

	typeTag := env.Type
	if typeTag == "" {
		typeTag = "tweet"
	}

	if systemTypes[typeTag] {
		c.handleSystemFrame(typeTag, env)
		return
	}

	frame := &ContentFrame{
		FrameID:    uuid.NewString(),
		ContentID:  env.contentID(),
		Type:       typeTag,
		Kind:       classifyKind(typeTag),
		Payload:    raw,
		ReceivedAt: time.Now(),
	}

	stored, replaced := c.buffer.Insert(frame)
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.FramesTotal.WithLabelValues(string(frame.Kind)).Inc()
		if !stored {
			c.cfg.Metrics.FramesDeduped.Inc()
		}
		c.cfg.Metrics.BufferSize.Set(float64(c.buffer.Len()))
	}
	c.log.Debug("content frame",
		"type", typeTag, "content_id", frame.ContentID,
		"kind", frame.Kind, "stored", stored, "replaced", replaced)
}

// handleSystemFrame applies connection-state and roster updates.
// Roster fields, when present, fully replace the local view: the
// server is the source of truth.
func (c *Channel) handleSystemFrame(typeTag string, env *frameEnvelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch typeTag {
	case "connected":
		c.status = StatusConnected
	case "error":
		msg := env.Message
		if msg == "" {
			msg = "server reported an error"
		}
		c.lastError = msg
		c.log.Warn("server error frame", "message", msg)
	}

	if env.SubscribedUsers != nil {
		c.roster.Users = env.SubscribedUsers
		c.roster.Count = len(env.SubscribedUsers)

		replay := make(map[string]struct{}, len(env.SubscribedUsers))
		for _, u := range env.SubscribedUsers {
			if u.ScreenName != "" {
				replay[u.ScreenName] = struct{}{}
			}
		}
		c.replay = replay
	}
	if env.Subscriptions != nil {
		c.roster.Count = *env.Subscriptions
	}
	if env.SubscriptionsLimit != nil {
		c.roster.Limit = *env.SubscriptionsLimit
	}
	if env.SubscribedUsers != nil || env.Subscriptions != nil {
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.Subscriptions.Set(float64(c.roster.Count))
		}
	}
}
