// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package posting

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postFixture wires a Publisher against httptest refresh and post
// endpoints with a fixed clock.
type postFixture struct {
	store     *BadgerStore
	publisher *Publisher
	now       time.Time

	refreshCalls atomic.Int64
	postCalls    atomic.Int64

	mu         sync.Mutex
	lastAuth   string
	lastBody   []byte
	postStatus int
	postReply  string
}

func newPostFixture(t *testing.T) *postFixture {
	t.Helper()

	f := &postFixture{
		store:      openTestStore(t),
		now:        time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
		postStatus: http.StatusCreated,
		postReply:  `{"data":{"id":"tw-999","text":"posted text"}}`,
	}

	refreshSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		_, _ = w.Write([]byte(`{"access_token":"access-refreshed","refresh_token":"refresh-rotated","expires_in":7200}`))
	}))
	t.Cleanup(refreshSrv.Close)

	postSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.postCalls.Add(1)
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.lastAuth = r.Header.Get("Authorization")
		f.lastBody = body
		status, reply := f.postStatus, f.postReply
		f.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(postSrv.Close)

	refresher := NewTokenRefresher(RefresherConfig{
		Endpoint:     refreshSrv.URL,
		ClientID:     "cid",
		ClientSecret: "csec",
	}, f.store)
	refresher.now = func() time.Time { return f.now }

	f.publisher = NewPublisher(PublisherConfig{
		Endpoint: postSrv.URL,
		Now:      func() time.Time { return f.now },
	}, f.store, refresher)

	return f
}

func (f *postFixture) putCredential(t *testing.T, expiresAt time.Time, refreshToken string) {
	t.Helper()
	require.NoError(t, f.store.Put(context.Background(), &Credential{
		AccountID:            "acct-1",
		Provider:             "twitter",
		UserID:               "user-1",
		AccessToken:          "access-fresh",
		RefreshToken:         refreshToken,
		AccessTokenExpiresAt: expiresAt,
		UpdatedAt:            f.now,
	}))
}

func TestPostReplyNoLinkedAccount(t *testing.T) {
	f := newPostFixture(t)

	_, err := f.publisher.PostReply(context.Background(), "acct-1", "hello", "")
	assert.ErrorIs(t, err, ErrNoLinkedAccount)
	assert.Equal(t, int64(0), f.postCalls.Load())
}

func TestPostReplyFreshTokenSkipsRefresh(t *testing.T) {
	f := newPostFixture(t)
	// 10 minutes out: beyond the 5-minute horizon, no refresh.
	f.putCredential(t, f.now.Add(10*time.Minute), "refresh-xyz")

	result, err := f.publisher.PostReply(context.Background(), "acct-1", "gm", "T1")
	require.NoError(t, err)
	assert.Equal(t, "tw-999", result.TweetID)
	assert.Equal(t, int64(0), f.refreshCalls.Load())
	assert.Equal(t, "Bearer access-fresh", f.lastAuth)
	assert.JSONEq(t, `{"text":"gm","reply":{"in_reply_to_tweet_id":"T1"}}`, string(f.lastBody))
}

func TestPostReplyExpiringTokenRefreshesFirst(t *testing.T) {
	f := newPostFixture(t)
	// 4 minutes out: inside the horizon, refresh must run first.
	f.putCredential(t, f.now.Add(4*time.Minute), "refresh-xyz")

	_, err := f.publisher.PostReply(context.Background(), "acct-1", "gm", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.refreshCalls.Load())
	assert.Equal(t, "Bearer access-refreshed", f.lastAuth)
	assert.JSONEq(t, `{"text":"gm"}`, string(f.lastBody), "no reply block for a top-level post")

	stored, err := f.store.Get(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "access-refreshed", stored.AccessToken)
	assert.Equal(t, "refresh-rotated", stored.RefreshToken)
}

func TestPostReplyUnknownExpiryForcesRefresh(t *testing.T) {
	f := newPostFixture(t)
	f.putCredential(t, time.Time{}, "refresh-xyz")

	_, err := f.publisher.PostReply(context.Background(), "acct-1", "gm", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.refreshCalls.Load())
}

func TestPostReplyReauthRequired(t *testing.T) {
	f := newPostFixture(t)
	f.putCredential(t, f.now.Add(time.Minute), "") // expiring, no refresh token

	_, err := f.publisher.PostReply(context.Background(), "acct-1", "gm", "")
	assert.ErrorIs(t, err, ErrReauthRequired)
	assert.Equal(t, int64(0), f.postCalls.Load(), "post must not be attempted")
}

func TestPostReplyRefreshFailureAbortsPost(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	refreshSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	t.Cleanup(refreshSrv.Close)

	var postCalls atomic.Int64
	postSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		postCalls.Add(1)
	}))
	t.Cleanup(postSrv.Close)

	refresher := NewTokenRefresher(RefresherConfig{Endpoint: refreshSrv.URL}, store)
	publisher := NewPublisher(PublisherConfig{
		Endpoint: postSrv.URL,
		Now:      func() time.Time { return now },
	}, store, refresher)

	require.NoError(t, store.Put(context.Background(), &Credential{
		AccountID:    "acct-1",
		Provider:     "twitter",
		UserID:       "user-1",
		AccessToken:  "stale",
		RefreshToken: "refresh-xyz",
	}))

	_, err := publisher.PostReply(context.Background(), "acct-1", "gm", "")
	var refreshErr *RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Contains(t, refreshErr.Body, "invalid_grant")
	assert.Equal(t, int64(0), postCalls.Load())
}

func TestPostReplyProviderErrorVerbatim(t *testing.T) {
	f := newPostFixture(t)
	f.putCredential(t, f.now.Add(time.Hour), "refresh-xyz")
	f.postStatus = http.StatusTooManyRequests
	f.postReply = `{"title":"Too Many Requests","detail":"rate limited"}`

	_, err := f.publisher.PostReply(context.Background(), "acct-1", "gm", "T1")
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusTooManyRequests, provErr.StatusCode)
	assert.Contains(t, provErr.Body, "rate limited")
}

func TestPostReplyConcurrentSendsRefreshOnce(t *testing.T) {
	f := newPostFixture(t)
	f.putCredential(t, f.now.Add(time.Minute), "refresh-xyz")

	const sends = 8
	errs := make(chan error, sends)
	for i := 0; i < sends; i++ {
		go func() {
			_, err := f.publisher.PostReply(context.Background(), "acct-1", "gm", "T1")
			errs <- err
		}()
	}
	for i := 0; i < sends; i++ {
		require.NoError(t, <-errs)
	}

	// The per-account lock serializes the expiring window: one refresh.
	assert.Equal(t, int64(1), f.refreshCalls.Load())
	assert.Equal(t, int64(sends), f.postCalls.Load())
}

func TestNeedsRefresh(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"unknown expiry", time.Time{}, true},
		{"expired", now.Add(-time.Hour), true},
		{"4 minutes out", now.Add(4 * time.Minute), true},
		{"10 minutes out", now.Add(10 * time.Minute), false},
		{"exactly at horizon boundary plus", now.Add(refreshHorizon + time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred := &Credential{AccessTokenExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, NeedsRefresh(cred, now))
		})
	}
}

func TestPostResultDecodesAck(t *testing.T) {
	f := newPostFixture(t)
	f.putCredential(t, f.now.Add(time.Hour), "refresh-xyz")

	result, err := f.publisher.PostReply(context.Background(), "acct-1", "gm", "")
	require.NoError(t, err)
	assert.Equal(t, "tw-999", result.TweetID)
	assert.Equal(t, "posted text", result.Text)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(result.Raw, &raw))
}
