// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package posting implements the credential-refresh-and-post path.
//
// # Description
//
// The posting path guarantees that every outbound post presents a
// non-expired access token to the provider, transparently refreshing
// when necessary and persisting rotated credentials.
//
// # Posting Algorithm
//
//	PostReply(accountID, text, parentContentID)
//	   │
//	   ├─► acquire per-account lock (serializes refresh + post)
//	   │
//	   ├─► load Credential          ── absent ─► ErrNoLinkedAccount
//	   │
//	   ├─► expiry within 5 minutes or unknown?
//	   │      ├─ no refresh token   ─► ErrReauthRequired
//	   │      └─ refresh + persist  ── rejected ─► *RefreshError
//	   │
//	   └─► POST with Bearer token   ── 4xx/5xx ─► *ProviderError (verbatim)
//
// No automatic retry is performed anywhere on this path: retries are
// an operator-level decision (regenerate and resend).
//
// # Concurrency
//
// A keyed per-account mutex serializes concurrent posts for the same
// account, so an expiring token is refreshed exactly once per window.
// Posts for different accounts run in parallel.
package posting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// DefaultPostEndpoint is the X/Twitter v2 tweet creation endpoint.
const DefaultPostEndpoint = "https://api.twitter.com/2/tweets"

// refreshHorizon is how close to expiry a token may get before a
// refresh is forced. An unknown expiry always forces one.
const refreshHorizon = 5 * time.Minute

// PostResult is the provider's acknowledgement of a created post.
type PostResult struct {
	TweetID string          `json:"tweetId"`
	Text    string          `json:"text"`
	Raw     json.RawMessage `json:"raw,omitempty"`
}

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	// Endpoint is the provider post endpoint.
	// Default: DefaultPostEndpoint.
	Endpoint string

	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Now is injectable for refresh-horizon tests. Default: time.Now.
	Now func() time.Time
}

// Publisher posts replies using credentials kept valid by the
// TokenRefresher. Safe for concurrent use.
type Publisher struct {
	store     CredentialStore
	refresher *TokenRefresher

	endpoint   string
	httpClient *http.Client
	log        *slog.Logger
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-account
}

// NewPublisher creates a Publisher over store and refresher.
func NewPublisher(cfg PublisherConfig, store CredentialStore, refresher *TokenRefresher) *Publisher {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultPostEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Publisher{
		store:      store,
		refresher:  refresher,
		endpoint:   cfg.Endpoint,
		httpClient: cfg.HTTPClient,
		log:        cfg.Logger,
		now:        cfg.Now,
		locks:      make(map[string]*sync.Mutex),
	}
}

// tweetPayload is the v2 create-tweet request body.
type tweetPayload struct {
	Text  string `json:"text"`
	Reply *struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	} `json:"reply,omitempty"`
}

// PostReply posts text for the linked account, optionally as a reply
// to parentContentID.
//
// Failure modes, in evaluation order:
//   - ErrNoLinkedAccount: no credential stored for accountID
//   - ErrReauthRequired: refresh needed but no refresh token stored
//   - *RefreshError: the identity provider rejected the refresh
//   - *ProviderError: the platform rejected the post (verbatim
//     status and body)
//
// The access token is refreshed first whenever its expiry is unknown
// or within five minutes of now.
func (p *Publisher) PostReply(ctx context.Context, accountID, text, parentContentID string) (*PostResult, error) {
	lock := p.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	cred, err := p.store.Get(ctx, accountID)
	if errors.Is(err, ErrCredentialNotFound) {
		return nil, ErrNoLinkedAccount
	}
	if err != nil {
		return nil, err
	}

	if NeedsRefresh(cred, p.now()) {
		if cred.RefreshToken == "" {
			return nil, ErrReauthRequired
		}
		cred, err = p.refresher.Refresh(ctx, cred)
		if err != nil {
			return nil, err
		}
	}

	return p.submit(ctx, cred, text, parentContentID)
}

// NeedsRefresh reports whether the credential must be refreshed
// before use: expiry unknown, or within the 5-minute horizon.
func NeedsRefresh(cred *Credential, now time.Time) bool {
	return cred.AccessTokenExpiresAt.IsZero() ||
		cred.AccessTokenExpiresAt.Before(now.Add(refreshHorizon))
}

func (p *Publisher) submit(ctx context.Context, cred *Credential, text, parentContentID string) (*PostResult, error) {
	payload := tweetPayload{Text: text}
	if parentContentID != "" {
		payload.Reply = &struct {
			InReplyToTweetID string `json:"in_reply_to_tweet_id"`
		}{InReplyToTweetID: parentContentID}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal post payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read post response: %w", err)
	}

	if resp.StatusCode >= 400 {
		p.log.Warn("provider rejected post",
			"account_id", cred.AccountID,
			"status", resp.StatusCode,
			"parent", parentContentID)
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var ack struct {
		Data struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &ack); err != nil {
		return nil, fmt.Errorf("decode post response: %w", err)
	}

	p.log.Info("reply posted",
		"account_id", cred.AccountID,
		"tweet_id", ack.Data.ID,
		"parent", parentContentID)
	return &PostResult{TweetID: ack.Data.ID, Text: ack.Data.Text, Raw: respBody}, nil
}

// accountLock returns the mutex serializing posts for one account.
func (p *Publisher) accountLock(accountID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[accountID] = lock
	}
	return lock
}
