// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHandle(t *testing.T) {
	tests := []struct {
		name    string
		handle  string
		wantErr bool
	}{
		{"simple", "elonmusk", false},
		{"with digits", "user2024", false},
		{"with underscore", "crypto_whale", false},
		{"single char", "x", false},
		{"max length", "fifteen_chars_x", false},
		{"empty", "", true},
		{"too long", "sixteen_chars_xx", true},
		{"with at sign", "@elonmusk", true},
		{"with space", "elon musk", true},
		{"with dash", "elon-musk", true},
		{"with dot", "elon.musk", true},
		{"unicode", "ユーザー", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHandle(tt.handle)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateHandles(t *testing.T) {
	assert.NoError(t, ValidateHandles([]string{"alice", "bob_2", "carol"}))

	err := ValidateHandles([]string{"alice", "bad handle", "also-bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad handle")
	assert.Contains(t, err.Error(), "also-bad")
}

func TestSanitizeHandle(t *testing.T) {
	got, err := SanitizeHandle("  @CryptoWhale ")
	require.NoError(t, err)
	assert.Equal(t, "CryptoWhale", got)

	_, err = SanitizeHandle("@@double")
	assert.Error(t, err)

	_, err = SanitizeHandle("   ")
	assert.Error(t, err)
}
