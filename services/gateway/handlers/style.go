// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/kolwatch/services/composer"
	"github.com/AleutianAI/kolwatch/services/directory"
	"github.com/AleutianAI/kolwatch/services/gateway/datatypes"
)

// TweetSource fetches the original tweets style analysis draws from.
type TweetSource interface {
	OriginalTweets(ctx context.Context, screenName string, limit int) ([]directory.TweetWithUser, error)
}

// AnalyzeStyle derives a style guide from one account's recent
// original tweets.
func AnalyzeStyle(source TweetSource, comp composer.Composer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.StyleAnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		tweets, err := source.OriginalTweets(c.Request.Context(), req.ScreenName, req.TweetLimit)
		if err != nil {
			slog.Error("tweet fetch for style analysis failed",
				"screen_name", req.ScreenName, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		if len(tweets) == 0 {
			c.JSON(http.StatusUnprocessableEntity,
				gin.H{"error": "no original tweets found for " + req.ScreenName})
			return
		}

		texts := tweetBodies(tweets)
		styleGuide, err := comp.AnalyzeStyle(c.Request.Context(), texts)
		if err != nil {
			slog.Error("style analysis failed", "screen_name", req.ScreenName, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"screenName":        req.ScreenName,
			"styleInstructions": styleGuide,
			"sampleCount":       len(texts),
		})
	}
}

// SampleReplies generates demonstration replies for a style guide
// against one account's recent original tweets.
func SampleReplies(source TweetSource, comp composer.Composer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.StyleSamplesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		tweets, err := source.OriginalTweets(c.Request.Context(), req.ScreenName, 0)
		if err != nil {
			slog.Error("tweet fetch for reply samples failed",
				"screen_name", req.ScreenName, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		if len(tweets) == 0 {
			c.JSON(http.StatusUnprocessableEntity,
				gin.H{"error": "no original tweets found for " + req.ScreenName})
			return
		}

		samples, err := comp.SampleReplies(c.Request.Context(),
			req.StyleInstructions, tweetBodies(tweets))
		if err != nil {
			slog.Error("reply sampling failed", "screen_name", req.ScreenName, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"samples": samples})
	}
}

func tweetBodies(tweets []directory.TweetWithUser) []string {
	texts := make([]string, 0, len(tweets))
	for _, tw := range tweets {
		if body := tw.Tweet.Body(); body != "" {
			texts = append(texts, body)
		}
	}
	return texts
}
