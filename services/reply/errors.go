// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package reply

import "errors"

var (
	// ErrBusy means a generate or send is already in flight for the
	// content id. Callers should check the status and retry later.
	ErrBusy = errors.New("an operation is already in flight for this item")

	// ErrTerminalState means the item is Skipped or Sent and accepts
	// no further operations.
	ErrTerminalState = errors.New("item is in a terminal state")

	// ErrUnknownContent means no reply state exists for the id.
	ErrUnknownContent = errors.New("no reply state for this content id")

	// ErrNotDrafted means the operation requires the Drafted state.
	ErrNotDrafted = errors.New("reply is not in a drafted state")

	// ErrEmptyDraft means the edited reply text is empty; there is
	// nothing to send.
	ErrEmptyDraft = errors.New("edited reply text is empty")
)
