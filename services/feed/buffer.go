// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package feed

import "sync"

// FrameBuffer is an ordered, bounded buffer of content frames with
// per-tweet deduplication.
//
// Invariant: at most one entry per non-empty ContentID, and that entry
// is the "full" kind if any full frame was ever received for the id,
// regardless of arrival order. Frames without a ContentID are always
// treated as new.
//
// Internally frames are stored oldest-first so replacement keeps a
// stable index; Frames() returns a newest-first copy, which is the
// order the feed renders.
//
// Safe for concurrent use.
type FrameBuffer struct {
	mu       sync.RWMutex
	frames   []*ContentFrame
	byID     map[string]int // ContentID -> index into frames
	capacity int
}

// DefaultBufferCapacity bounds the in-memory feed. The feed is
// session-scoped and not durable; old frames are evicted silently.
const DefaultBufferCapacity = 500

// NewFrameBuffer creates a buffer holding at most capacity frames.
// capacity <= 0 selects DefaultBufferCapacity.
func NewFrameBuffer(capacity int) *FrameBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &FrameBuffer{
		byID:     make(map[string]int),
		capacity: capacity,
	}
}

// Insert applies the dedup rule and stores the frame.
//
// Returns (stored, replaced):
//   - a partial frame for an id that already has a full frame is
//     dropped: (false, false)
//   - a frame for a known id otherwise replaces the existing entry in
//     place, preserving its feed position: (true, true)
//   - anything else is appended as new, evicting the oldest frame if
//     the buffer is at capacity: (true, false)
func (b *FrameBuffer) Insert(f *ContentFrame) (stored, replaced bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if f.ContentID != "" {
		if idx, ok := b.byID[f.ContentID]; ok {
			existing := b.frames[idx]
			if existing.Kind == KindFull && f.Kind != KindFull {
				// Full payload already held; the partial adds nothing.
				return false, false
			}
			b.frames[idx] = f
			return true, true
		}
	}

	if len(b.frames) >= b.capacity {
		b.evictOldestLocked()
	}
	b.frames = append(b.frames, f)
	if f.ContentID != "" {
		b.byID[f.ContentID] = len(b.frames) - 1
	}
	return true, false
}

// evictOldestLocked drops frames[0] and reindexes.
func (b *FrameBuffer) evictOldestLocked() {
	oldest := b.frames[0]
	if oldest.ContentID != "" {
		delete(b.byID, oldest.ContentID)
	}
	b.frames = b.frames[1:]
	for id, idx := range b.byID {
		b.byID[id] = idx - 1
	}
}

// Get returns the buffered frame for a content id, if any.
func (b *FrameBuffer) Get(contentID string) (*ContentFrame, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	idx, ok := b.byID[contentID]
	if !ok {
		return nil, false
	}
	return b.frames[idx], true
}

// Frames returns a newest-first copy of the buffer.
func (b *FrameBuffer) Frames() []*ContentFrame {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*ContentFrame, len(b.frames))
	for i, f := range b.frames {
		out[len(b.frames)-1-i] = f
	}
	return out
}

// Len returns the number of buffered frames.
func (b *FrameBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.frames)
}

// Clear empties the buffer. Subscriptions and connection state are
// unaffected; this only drops feed content.
func (b *FrameBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = nil
	b.byID = make(map[string]int)
}
