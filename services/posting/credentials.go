// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package posting

import (
	"context"
	"time"
)

// Credential is one linked account's OAuth material.
//
// Created at OAuth link time (external), mutated only by the
// TokenRefresher, and never deleted by the posting path (unlink is an
// operator action).
type Credential struct {
	// AccountID uniquely identifies the linked provider account.
	AccountID string `json:"accountId"`

	// Provider names the identity provider, e.g. "twitter".
	Provider string `json:"provider"`

	// UserID is the operator session owner of the linked account.
	UserID string `json:"userId"`

	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`

	// AccessTokenExpiresAt is the provider-declared expiry. Zero
	// means unknown, which forces a refresh before every use.
	AccessTokenExpiresAt time.Time `json:"accessTokenExpiresAt,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// CredentialStore persists per-account OAuth credentials.
//
// Implementations must be safe for concurrent use; the posting path
// may read and write credentials for different accounts in parallel.
type CredentialStore interface {
	// Get loads the credential for an account id.
	// Returns ErrCredentialNotFound if absent.
	Get(ctx context.Context, accountID string) (*Credential, error)

	// GetByUser loads the credential a user linked for a provider.
	// Returns ErrCredentialNotFound if absent.
	GetByUser(ctx context.Context, userID, provider string) (*Credential, error)

	// Put inserts or replaces a credential and its user index entry.
	Put(ctx context.Context, cred *Credential) error

	// Delete removes a credential. Deleting an absent credential is
	// not an error.
	Delete(ctx context.Context, accountID string) error
}
