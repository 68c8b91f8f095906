// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package directory is a typed client for the KOL data API: profile
// lookup, recent tweets and tag-based filtering.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/kolwatch/pkg/validation"
)

// DefaultOriginalTweetLimit caps how many original tweets a style
// sample draws from one account.
const DefaultOriginalTweetLimit = 10

// defaultTimeout matches the data API's worst-case filter latency.
const defaultTimeout = 60 * time.Second

// Config configures the data API client.
type Config struct {
	// BaseURL is the data API root, e.g. "https://data.internal:8000".
	BaseURL string

	// HTTPClient overrides the default 60s-timeout client.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client talks to the KOL data API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a data API client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		log:        log,
	}
}

// UserInfo fetches profiles for the given screen names.
func (c *Client) UserInfo(ctx context.Context, screenNames []string) ([]User, error) {
	if err := validation.ValidateHandles(screenNames); err != nil {
		return nil, err
	}

	var users []User
	err := c.get(ctx, "/user_info", url.Values{
		"screen_names": {strings.Join(screenNames, ",")},
	}, &users)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// TweetsInfo fetches recent tweets, with authors, for the given screen
// names.
func (c *Client) TweetsInfo(ctx context.Context, screenNames []string) ([]TweetWithUser, error) {
	if err := validation.ValidateHandles(screenNames); err != nil {
		return nil, err
	}

	var tweets []TweetWithUser
	err := c.get(ctx, "/tweets_info", url.Values{
		"screen_names": {strings.Join(screenNames, ",")},
	}, &tweets)
	if err != nil {
		return nil, err
	}
	return tweets, nil
}

// FilterKOLs runs the tag-facet filter and returns the matching KOLs.
func (c *Client) FilterKOLs(ctx context.Context, params FilterParams) ([]FilterResult, error) {
	var results []FilterResult
	if err := c.post(ctx, "/kol_filter", params, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// OriginalTweets fetches recent tweets for one account and keeps only
// originals (no retweets, no replies), capped at limit. A limit <= 0
// uses DefaultOriginalTweetLimit.
func (c *Client) OriginalTweets(ctx context.Context, screenName string, limit int) ([]TweetWithUser, error) {
	if limit <= 0 {
		limit = DefaultOriginalTweetLimit
	}

	all, err := c.TweetsInfo(ctx, []string{screenName})
	if err != nil {
		return nil, err
	}

	out := make([]TweetWithUser, 0, limit)
	for _, tw := range all {
		if !tw.Tweet.IsOriginal() {
			continue
		}
		out = append(out, tw)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// OriginalTweetsByUser fans out OriginalTweets over many accounts and
// collects the results per screen name. The fan-out is bounded so a
// large KOL list does not stampede the data API.
func (c *Client) OriginalTweetsByUser(ctx context.Context, screenNames []string, limit int) (map[string][]TweetWithUser, error) {
	if err := validation.ValidateHandles(screenNames); err != nil {
		return nil, err
	}

	results := make([][]TweetWithUser, len(screenNames))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, name := range screenNames {
		g.Go(func() error {
			tweets, err := c.OriginalTweets(ctx, name, limit)
			if err != nil {
				return fmt.Errorf("tweets for %s: %w", name, err)
			}
			results[i] = tweets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]TweetWithUser, len(screenNames))
	for i, name := range screenNames {
		out[name] = results[i]
	}
	return out, nil
}

// ===== Transport =====

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("data api %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("data api %s: read response: %w", req.URL.Path, err)
	}

	c.log.Debug("data api call",
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("data api %s: status %d: %s",
			req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("data api %s: decode response: %w", req.URL.Path, err)
	}
	return nil
}
