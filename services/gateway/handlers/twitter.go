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
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/kolwatch/services/gateway/datatypes"
	"github.com/AleutianAI/kolwatch/services/posting"
)

// AccountStatus reports whether an account is linked and whether its
// token is inside the refresh horizon.
func AccountStatus(store posting.CredentialStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.Param("accountId")

		cred, err := store.Get(c.Request.Context(), accountID)
		if err != nil {
			if errors.Is(err, posting.ErrCredentialNotFound) {
				c.JSON(http.StatusOK, datatypes.AccountStatus{
					AccountID: accountID,
					Linked:    false,
				})
				return
			}
			slog.Error("credential lookup failed", "account_id", accountID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "credential lookup failed"})
			return
		}

		status := datatypes.AccountStatus{
			AccountID:    cred.AccountID,
			Provider:     cred.Provider,
			Linked:       true,
			NeedsRefresh: posting.NeedsRefresh(cred, time.Now()),
		}
		if !cred.AccessTokenExpiresAt.IsZero() {
			status.ExpiresAt = cred.AccessTokenExpiresAt.UTC().Format(time.RFC3339)
		}
		c.JSON(http.StatusOK, status)
	}
}

// PostTweet posts a tweet (optionally a reply) directly from a linked
// account, outside the drafting workflow.
func PostTweet(publisher *posting.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.PostTweetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := publisher.PostReply(c.Request.Context(),
			req.AccountID, req.Text, req.InReplyTo)
		if err != nil {
			slog.Warn("direct post failed", "account_id", req.AccountID, "error", err)
			c.JSON(postErrorStatus(err), gin.H{"error": err.Error()})
			return
		}

		slog.Info("tweet posted", "account_id", req.AccountID, "tweet_id", result.TweetID)
		c.JSON(http.StatusOK, result)
	}
}

// UnlinkAccount deletes an account's stored credentials.
func UnlinkAccount(store posting.CredentialStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.Param("accountId")

		if err := store.Delete(c.Request.Context(), accountID); err != nil {
			slog.Error("credential delete failed", "account_id", accountID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "credential delete failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "unlinked", "accountId": accountID})
	}
}

// postErrorStatus maps posting-path errors to HTTP statuses. Provider
// and refresh failures keep their upstream bodies verbatim in the
// error string.
func postErrorStatus(err error) int {
	var refreshErr *posting.RefreshError
	var provErr *posting.ProviderError
	switch {
	case errors.Is(err, posting.ErrNoLinkedAccount):
		return http.StatusNotFound
	case errors.Is(err, posting.ErrReauthRequired):
		return http.StatusUnauthorized
	case errors.As(err, &refreshErr):
		return http.StatusUnauthorized
	case errors.As(err, &provErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
