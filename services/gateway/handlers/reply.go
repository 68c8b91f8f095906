// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/kolwatch/services/gateway/datatypes"
	"github.com/AleutianAI/kolwatch/services/posting"
	"github.com/AleutianAI/kolwatch/services/reply"
)

// replyErrorStatus maps lifecycle errors to HTTP statuses.
func replyErrorStatus(err error) int {
	switch {
	case errors.Is(err, reply.ErrUnknownContent):
		return http.StatusNotFound
	case errors.Is(err, reply.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, reply.ErrTerminalState),
		errors.Is(err, reply.ErrNotDrafted),
		errors.Is(err, reply.ErrEmptyDraft):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// GenerateReply drafts a reply for one content item.
func GenerateReply(manager *reply.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reply.GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		state, err := manager.Generate(c.Request.Context(), req)
		if err != nil {
			c.JSON(replyErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, state)
	}
}

// EditReply replaces the editable copy of a drafted reply.
func EditReply(manager *reply.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.EditDraftRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		state, err := manager.EditDraft(c.Param("contentId"), req.Text)
		if err != nil {
			c.JSON(replyErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, state)
	}
}

// SendReply posts the edited draft for one content item.
func SendReply(manager *reply.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.SendReplyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		contentID := c.Param("contentId")

		state, err := manager.Send(c.Request.Context(), contentID, req.AccountID)
		if err != nil {
			slog.Warn("reply send failed",
				"content_id", contentID, "error", err)
			status := replyErrorStatus(err)

			// Posting-path failures carry more specific statuses; the
			// state (re-entered Drafted) goes back with the error so
			// the operator can resend.
			var provErr *posting.ProviderError
			switch {
			case errors.Is(err, posting.ErrNoLinkedAccount),
				errors.Is(err, posting.ErrReauthRequired):
				status = http.StatusUnauthorized
			case errors.As(err, &provErr):
				status = http.StatusBadGateway
			}
			c.JSON(status, gin.H{"error": err.Error(), "state": state})
			return
		}
		c.JSON(http.StatusOK, state)
	}
}

// ReplyState returns the lifecycle state of one content item.
func ReplyState(manager *reply.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, ok := manager.State(c.Param("contentId"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": reply.ErrUnknownContent.Error()})
			return
		}
		c.JSON(http.StatusOK, state)
	}
}

// ReplyStates returns every tracked lifecycle state.
func ReplyStates(manager *reply.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, manager.States())
	}
}
