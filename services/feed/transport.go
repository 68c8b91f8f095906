// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package feed

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
)

// Conn is the transport surface the channel needs from a websocket
// connection. *websocket.Conn satisfies it directly; tests supply
// scripted fakes.
type Conn interface {
	// ReadMessage blocks until the next message or a transport error.
	ReadMessage() (messageType int, p []byte, err error)

	// WriteJSON marshals v and writes it as a single text message.
	// Callers must serialize writes; gorilla connections do not
	// support concurrent writers.
	WriteJSON(v any) error

	Close() error
}

// Dialer opens a transport connection to the push server.
type Dialer func(ctx context.Context, url string) (Conn, error)

// GorillaDialer is the production Dialer, backed by
// websocket.DefaultDialer.
func GorillaDialer(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return conn, nil
}
