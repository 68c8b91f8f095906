// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/kolwatch/services/directory"
)

// splitScreenNames parses a comma-separated screen_names query value.
func splitScreenNames(raw string) []string {
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

// KolUserInfo proxies profile lookups to the data API.
func KolUserInfo(client *directory.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		names := splitScreenNames(c.Query("screen_names"))
		if len(names) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "screen_names is required"})
			return
		}

		users, err := client.UserInfo(c.Request.Context(), names)
		if err != nil {
			slog.Error("user info lookup failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

// KolTweetsInfo proxies tweet lookups to the data API.
func KolTweetsInfo(client *directory.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		names := splitScreenNames(c.Query("screen_names"))
		if len(names) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "screen_names is required"})
			return
		}

		tweets, err := client.TweetsInfo(c.Request.Context(), names)
		if err != nil {
			slog.Error("tweets info lookup failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, tweets)
	}
}

// FilterKols runs the tag-facet KOL filter.
func FilterKols(client *directory.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params directory.FilterParams
		if err := c.ShouldBindJSON(&params); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		results, err := client.FilterKOLs(c.Request.Context(), params)
		if err != nil {
			slog.Error("kol filter failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, results)
	}
}
