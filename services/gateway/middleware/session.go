// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the gateway service:
// session authentication and per-client rate limiting.
//
// # Session Flow
//
// The session middleware resolves the caller's session using the
// configured SessionProvider and stores it in the Gin context for
// downstream handlers.
//
//	Request
//	   │
//	   ▼
//	RequireSession
//	   │
//	   ├─► provider.Session(ctx, request)
//	   │
//	   └─► Store Session in context
//	           │
//	           ▼
//	       Handler (retrieves via GetSession)
//
// The RemoteProvider forwards the request's cookies to an external
// auth service; the StaticProvider authenticates everything as one
// fixed operator, which is what single-user deployments run with.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// sessionKey is the context key for storing the resolved Session.
const sessionKey = "kolwatch_session"

// ErrNoSession means the provider could not resolve a session for the
// request.
var ErrNoSession = errors.New("no active session")

// Session identifies the authenticated operator.
type Session struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

// SessionProvider resolves the session attached to a request.
type SessionProvider interface {
	// Session returns the caller's session, or ErrNoSession when the
	// request carries no valid one.
	Session(ctx context.Context, r *http.Request) (*Session, error)
}

// SetSession stores the session in the Gin context.
func SetSession(c *gin.Context, s *Session) {
	c.Set(sessionKey, s)
}

// GetSession retrieves the session from the Gin context, or nil when
// the request was not authenticated.
func GetSession(c *gin.Context) *Session {
	if v, exists := c.Get(sessionKey); exists {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	return nil
}

// RequireSession rejects requests the provider cannot resolve a
// session for, and stores the session for handlers otherwise.
func RequireSession(provider SessionProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := provider.Session(c.Request.Context(), c.Request)
		if err != nil {
			if errors.Is(err, ErrNoSession) {
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					gin.H{"error": "authentication required"})
				return
			}
			c.AbortWithStatusJSON(http.StatusBadGateway,
				gin.H{"error": "session lookup failed"})
			return
		}

		SetSession(c, session)
		c.Next()
	}
}

// ===== Remote Provider =====

// RemoteProvider asks an external auth service to resolve the session,
// forwarding the caller's cookies.
type RemoteProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteProvider creates a provider against the auth service at
// baseURL.
func NewRemoteProvider(baseURL string, httpClient *http.Client) *RemoteProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (p *RemoteProvider) Session(ctx context.Context, r *http.Request) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/api/auth/get-session", nil)
	if err != nil {
		return nil, err
	}
	if cookie := r.Header.Get("Cookie"); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrNoSession
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth service: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("auth service: read response: %w", err)
	}

	// The auth service returns null for anonymous callers.
	var payload struct {
		User *struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("auth service: decode response: %w", err)
	}
	if payload.User == nil || payload.User.ID == "" {
		return nil, ErrNoSession
	}

	return &Session{
		UserID: payload.User.ID,
		Name:   payload.User.Name,
		Email:  payload.User.Email,
	}, nil
}

// ===== Static Provider =====

// StaticProvider authenticates every request as one fixed operator.
// Used by single-user deployments and tests.
type StaticProvider struct {
	UserID string
	Name   string
}

func (p *StaticProvider) Session(_ context.Context, _ *http.Request) (*Session, error) {
	userID := p.UserID
	if userID == "" {
		userID = "local-operator"
	}
	return &Session{UserID: userID, Name: p.Name}, nil
}

var (
	_ SessionProvider = (*RemoteProvider)(nil)
	_ SessionProvider = (*StaticProvider)(nil)
)
