// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package outreach is a typed client for the professional-network
// lookup API: people search and profile enrichment.
package outreach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// SearchParams narrows a people search. Title and Country are
// required; the rest are optional refinements.
type SearchParams struct {
	Title      string `json:"title"`
	Country    string `json:"country"`
	Company    string `json:"company,omitempty"`
	University string `json:"university,omitempty"`
}

// SearchItem is one raw search hit.
type SearchItem struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// SearchResponse pairs the raw hits with the usernames the API could
// extract from them. Usernames the API failed to resolve come back as
// empty strings and are dropped by Usernames().
type SearchResponse struct {
	Items     []SearchItem `json:"items"`
	Usernames []string     `json:"usernames"`
}

// ResolvedUsernames returns the usernames the API managed to extract,
// skipping unresolved entries.
func (r *SearchResponse) ResolvedUsernames() []string {
	out := make([]string, 0, len(r.Usernames))
	for _, u := range r.Usernames {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

// Position is one work experience entry on an enriched profile.
type Position struct {
	Title       string `json:"title"`
	CompanyName string `json:"companyName"`
	Location    string `json:"location,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Description string `json:"description,omitempty"`
}

// Education is one education entry on an enriched profile.
type Education struct {
	SchoolName string `json:"schoolName"`
	Degree     string `json:"degree,omitempty"`
	Field      string `json:"fieldOfStudy,omitempty"`
	StartYear  string `json:"startYear,omitempty"`
	EndYear    string `json:"endYear,omitempty"`
}

// Profile is one enriched profile.
type Profile struct {
	Username  string      `json:"username"`
	FullName  string      `json:"fullName"`
	Headline  string      `json:"headline,omitempty"`
	Location  string      `json:"location,omitempty"`
	Summary   string      `json:"summary,omitempty"`
	Positions []Position  `json:"positions,omitempty"`
	Education []Education `json:"education,omitempty"`
}

// Config configures the lookup API client.
type Config struct {
	// BaseURL is the lookup API root.
	BaseURL string

	// HTTPClient overrides the default 60s-timeout client.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client talks to the lookup API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a lookup API client.
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

// Search runs a people search.
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchResponse, error) {
	if params.Title == "" || params.Country == "" {
		return nil, errors.New("search requires a title and a country")
	}

	var resp SearchResponse
	if err := c.post(ctx, "/search", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EnrichProfiles fetches full profiles for the given usernames.
func (c *Client) EnrichProfiles(ctx context.Context, usernames []string) ([]Profile, error) {
	if len(usernames) == 0 {
		return nil, errors.New("no usernames to enrich")
	}

	payload := struct {
		Usernames []string `json:"usernames"`
	}{Usernames: usernames}

	var profiles []Profile
	if err := c.post(ctx, "/enrich_profiles", payload, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
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

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lookup api %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("lookup api %s: read response: %w", path, err)
	}

	c.log.Debug("lookup api call",
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lookup api %s: status %d: %s",
			path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("lookup api %s: decode response: %w", path, err)
	}
	return nil
}
