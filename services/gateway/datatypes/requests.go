// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes holds the request and response shapes of the
// gateway HTTP API.
package datatypes

// SubscribeRequest adds or removes one account on the live feed.
type SubscribeRequest struct {
	AccountHandle string `json:"accountHandle" binding:"required"`
}

// EditDraftRequest replaces the editable copy of a drafted reply.
type EditDraftRequest struct {
	Text string `json:"text" binding:"required"`
}

// SendReplyRequest posts the edited draft from the given account.
type SendReplyRequest struct {
	AccountID string `json:"accountId" binding:"required"`
}

// PostTweetRequest posts a tweet directly, outside the reply workflow.
type PostTweetRequest struct {
	AccountID string `json:"accountId" binding:"required"`
	Text      string `json:"text" binding:"required"`

	// InReplyTo optionally makes the post a reply to an existing tweet.
	InReplyTo string `json:"inReplyTo"`
}

// StyleAnalyzeRequest derives a style guide from one account's recent
// original tweets.
type StyleAnalyzeRequest struct {
	ScreenName string `json:"screenName" binding:"required"`

	// TweetLimit caps how many original tweets feed the analysis.
	// Zero uses the service default.
	TweetLimit int `json:"tweetLimit"`
}

// StyleSamplesRequest generates demonstration replies for a style guide.
type StyleSamplesRequest struct {
	StyleInstructions string `json:"styleInstructions" binding:"required"`
	ScreenName        string `json:"screenName" binding:"required"`
}

// AccountStatus reports the posting readiness of one linked account.
type AccountStatus struct {
	AccountID    string `json:"accountId"`
	Provider     string `json:"provider"`
	Linked       bool   `json:"linked"`
	NeedsRefresh bool   `json:"needsRefresh"`
	ExpiresAt    string `json:"expiresAt,omitempty"`
}

// FeedStatus is a snapshot of the live feed connection.
type FeedStatus struct {
	Status            string `json:"status"`
	LastError         string `json:"lastError,omitempty"`
	ReconnectAttempts int    `json:"reconnectAttempts"`
	BufferedFrames    int    `json:"bufferedFrames"`
}
