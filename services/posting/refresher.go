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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTokenEndpoint is the X/Twitter OAuth2 token endpoint.
const DefaultTokenEndpoint = "https://api.twitter.com/2/oauth2/token"

// refreshResponse is the provider's token response shape.
type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// RefresherConfig configures a TokenRefresher.
type RefresherConfig struct {
	// Endpoint is the provider token endpoint.
	// Default: DefaultTokenEndpoint.
	Endpoint string

	// ClientID and ClientSecret are the registered OAuth app
	// credentials, presented as HTTP Basic auth on the exchange.
	ClientID     string
	ClientSecret string

	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// TokenRefresher exchanges refresh tokens with the identity provider
// and persists rotated credentials.
type TokenRefresher struct {
	endpoint     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	store        CredentialStore
	log          *slog.Logger

	// now is injectable for expiry computation in tests.
	now func() time.Time
}

// NewTokenRefresher creates a refresher persisting into store.
func NewTokenRefresher(cfg RefresherConfig, store CredentialStore) *TokenRefresher {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultTokenEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &TokenRefresher{
		endpoint:     cfg.Endpoint,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   cfg.HTTPClient,
		store:        store,
		log:          cfg.Logger,
		now:          time.Now,
	}
}

// Refresh exchanges the credential's refresh token for a new access
// token and persists the result.
//
// The rotated refresh token is stored only when the provider returns
// one: providers that reuse refresh tokens must not have the stored
// token overwritten with an absent value.
//
// Returns the updated credential, or a *RefreshError on provider
// rejection (the stored credential is left untouched in that case).
func (r *TokenRefresher) Refresh(ctx context.Context, cred *Credential) (*Credential, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", cred.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+r.basicAuth())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token refresh request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read refresh response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		r.log.Error("token refresh rejected",
			"account_id", cred.AccountID, "status", resp.StatusCode)
		return nil, &RefreshError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr refreshResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode refresh response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, &RefreshError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	now := r.now()
	updated := *cred
	updated.AccessToken = tr.AccessToken
	updated.AccessTokenExpiresAt = now.Add(time.Duration(tr.ExpiresIn) * time.Second)
	updated.UpdatedAt = now
	if tr.RefreshToken != "" {
		updated.RefreshToken = tr.RefreshToken
	}

	if err := r.store.Put(ctx, &updated); err != nil {
		return nil, fmt.Errorf("persist refreshed credential: %w", err)
	}

	r.log.Info("access token refreshed",
		"account_id", cred.AccountID,
		"expires_at", updated.AccessTokenExpiresAt,
		"refresh_token_rotated", tr.RefreshToken != "")
	return &updated, nil
}

func (r *TokenRefresher) basicAuth() string {
	return base64.StdEncoding.EncodeToString([]byte(r.clientID + ":" + r.clientSecret))
}
