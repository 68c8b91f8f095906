// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package posting

import (
	"errors"
	"fmt"
)

var (
	// ErrCredentialNotFound is returned by CredentialStore lookups
	// when no credential exists for the key.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrNoLinkedAccount means no credential exists for the account;
	// the operator must link one before posting.
	ErrNoLinkedAccount = errors.New("no linked account")

	// ErrReauthRequired means the access token needs a refresh but no
	// refresh token is stored. The post is not attempted; the operator
	// must relink the account.
	ErrReauthRequired = errors.New("token expired and no refresh token available, please reconnect the account")
)

// RefreshError is a token refresh rejected by the identity provider.
// Status and body are carried verbatim for diagnostics; the post is
// not attempted.
type RefreshError struct {
	StatusCode int
	Body       string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %d %s", e.StatusCode, e.Body)
}

// ProviderError is a post rejected by the social platform API (rate
// limit, duplicate content, permission). Surfaced verbatim; never
// retried automatically.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider rejected post: %d %s", e.StatusCode, e.Body)
}
