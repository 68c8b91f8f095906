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

	"github.com/AleutianAI/kolwatch/services/feed"
	"github.com/AleutianAI/kolwatch/services/gateway/datatypes"
)

// ConnectFeed opens the live feed connection.
func ConnectFeed(channel *feed.Channel) gin.HandlerFunc {
	return func(c *gin.Context) {
		slog.Info("Received request to connect the live feed")
		if err := channel.Connect(c.Request.Context()); err != nil {
			slog.Error("feed connect failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": string(channel.Status())})
	}
}

// DisconnectFeed closes the live feed connection without triggering
// automatic reconnects.
func DisconnectFeed(channel *feed.Channel) gin.HandlerFunc {
	return func(c *gin.Context) {
		slog.Info("Received request to disconnect the live feed")
		channel.Disconnect()
		c.JSON(http.StatusOK, gin.H{"status": string(channel.Status())})
	}
}

// FeedStatus reports the current connection state of the live feed.
func FeedStatus(channel *feed.Channel) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, datatypes.FeedStatus{
			Status:            string(channel.Status()),
			LastError:         channel.LastError(),
			ReconnectAttempts: channel.ReconnectAttempts(),
			BufferedFrames:    len(channel.Frames()),
		})
	}
}

// SubscribeFeed adds one account to the live feed roster.
func SubscribeFeed(channel *feed.Channel) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.SubscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := channel.Subscribe(req.AccountHandle); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Info("subscribe requested", "handle", req.AccountHandle)
		c.JSON(http.StatusAccepted, gin.H{"accountHandle": req.AccountHandle})
	}
}

// UnsubscribeFeed removes one account from the live feed roster.
func UnsubscribeFeed(channel *feed.Channel) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.SubscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := channel.Unsubscribe(req.AccountHandle); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Info("unsubscribe requested", "handle", req.AccountHandle)
		c.JSON(http.StatusAccepted, gin.H{"accountHandle": req.AccountHandle})
	}
}

// FeedRoster returns the server-confirmed subscription roster.
func FeedRoster(channel *feed.Channel) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, channel.Roster())
	}
}

// FeedFrames returns the buffered content frames, newest first.
func FeedFrames(channel *feed.Channel) gin.HandlerFunc {
	return func(c *gin.Context) {
		frames := channel.Frames()
		c.JSON(http.StatusOK, gin.H{"frames": frames, "count": len(frames)})
	}
}

// ClearFeed empties the frame buffer.
func ClearFeed(channel *feed.Channel) gin.HandlerFunc {
	return func(c *gin.Context) {
		channel.Clear()
		c.JSON(http.StatusOK, gin.H{"status": "cleared"})
	}
}
