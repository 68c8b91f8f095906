// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package posting

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRefresher(t *testing.T, store CredentialStore, handler http.HandlerFunc) *TokenRefresher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewTokenRefresher(RefresherConfig{
		Endpoint:     srv.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}, store)
}

func TestRefreshExchangesAndPersists(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, testCredential()))

	var gotAuth, gotGrant, gotToken, gotContentType string
	refresher := newTestRefresher(t, store, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseForm())
		gotGrant = r.PostForm.Get("grant_type")
		gotToken = r.PostForm.Get("refresh_token")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-new","refresh_token":"refresh-new","expires_in":7200}`))
	})
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	refresher.now = func() time.Time { return base }

	cred, err := store.Get(ctx, "acct-1")
	require.NoError(t, err)

	updated, err := refresher.Refresh(ctx, cred)
	require.NoError(t, err)

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("client-id:client-secret"))
	assert.Equal(t, wantAuth, gotAuth)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "refresh_token", gotGrant)
	assert.Equal(t, "refresh-xyz", gotToken)

	assert.Equal(t, "access-new", updated.AccessToken)
	assert.Equal(t, "refresh-new", updated.RefreshToken)
	assert.Equal(t, base.Add(7200*time.Second), updated.AccessTokenExpiresAt)

	// Persisted, not just returned.
	stored, err := store.Get(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "access-new", stored.AccessToken)
	assert.Equal(t, "refresh-new", stored.RefreshToken)
}

func TestRefreshPreservesRefreshTokenWhenOmitted(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, testCredential()))

	refresher := newTestRefresher(t, store, func(w http.ResponseWriter, r *http.Request) {
		// Provider reuses refresh tokens: response omits refresh_token.
		_, _ = w.Write([]byte(`{"access_token":"access-new","expires_in":7200}`))
	})

	cred, err := store.Get(ctx, "acct-1")
	require.NoError(t, err)

	updated, err := refresher.Refresh(ctx, cred)
	require.NoError(t, err)
	assert.Equal(t, "refresh-xyz", updated.RefreshToken)

	stored, err := store.Get(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "refresh-xyz", stored.RefreshToken, "stored refresh token must remain unchanged")
	assert.Equal(t, "access-new", stored.AccessToken)
}

func TestRefreshProviderRejection(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, testCredential()))

	refresher := newTestRefresher(t, store, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	})

	cred, err := store.Get(ctx, "acct-1")
	require.NoError(t, err)

	_, err = refresher.Refresh(ctx, cred)
	var refreshErr *RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, http.StatusUnauthorized, refreshErr.StatusCode)
	assert.Contains(t, refreshErr.Body, "invalid_grant")

	// Stored credential untouched on failure.
	stored, err := store.Get(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "access-abc", stored.AccessToken)
}

func TestRefreshEmptyAccessTokenIsError(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, testCredential()))

	refresher := newTestRefresher(t, store, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	cred, err := store.Get(ctx, "acct-1")
	require.NoError(t, err)

	_, err = refresher.Refresh(ctx, cred)
	var refreshErr *RefreshError
	assert.ErrorAs(t, err, &refreshErr)
}
