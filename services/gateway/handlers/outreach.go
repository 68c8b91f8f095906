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

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/kolwatch/services/outreach"
)

// OutreachSearch runs a people search against the lookup API.
func OutreachSearch(client *outreach.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params outreach.SearchParams
		if err := c.ShouldBindJSON(&params); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		resp, err := client.Search(c.Request.Context(), params)
		if err != nil {
			slog.Error("outreach search failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// OutreachEnrich fetches full profiles for the given usernames.
func OutreachEnrich(client *outreach.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Usernames []string `json:"usernames" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		profiles, err := client.EnrichProfiles(c.Request.Context(), req.Usernames)
		if err != nil {
			slog.Error("profile enrichment failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, profiles)
	}
}
