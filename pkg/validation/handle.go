// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that are forwarded
// to the push channel or external APIs. Using these validators prevents control
// frame injection and keeps garbage handles out of the subscription roster.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// handlePattern matches valid Twitter/X screen names.
// Allows: letters, digits, underscores. Max length: 15 characters.
var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)

// ValidateHandle validates an account screen name before it is placed into a
// subscribe/unsubscribe control frame.
//
// Valid handles:
//   - 1-15 characters
//   - Letters A-Z / a-z
//   - Digits 0-9
//   - Underscores
//
// Returns an error if the handle is invalid.
//
// Example:
//
//	if err := validation.ValidateHandle(handle); err != nil {
//	    return fmt.Errorf("invalid handle: %w", err)
//	}
//	// Safe to send over the channel
func ValidateHandle(handle string) error {
	if handle == "" {
		return fmt.Errorf("handle cannot be empty")
	}

	if !handlePattern.MatchString(handle) {
		return fmt.Errorf("invalid handle format: %q (must be 1-15 letters, digits, or underscores)", handle)
	}

	return nil
}

// ValidateHandles validates multiple screen names.
// Returns an error listing all invalid handles if any fail validation.
func ValidateHandles(handles []string) error {
	var invalid []string
	for _, h := range handles {
		if err := ValidateHandle(h); err != nil {
			invalid = append(invalid, h)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid handles: %v", invalid)
	}
	return nil
}

// SanitizeHandle normalizes and validates a screen name.
// Strips a leading "@" and surrounding whitespace, then validates.
//
// Use this when accepting handles typed by an operator:
//
//	safeHandle, err := validation.SanitizeHandle(userInput)
//	if err != nil {
//	    return err
//	}
//	// safeHandle has no "@" prefix and is validated
func SanitizeHandle(handle string) (string, error) {
	normalized := strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if err := ValidateHandle(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
