// Package state provides the filesystem-backed persistence layer:
// a string-keyed JSON blob store and the message/session stores on top of it.
package state

import "github.com/user/chatrelay/internal/types"

// Compile-time interface compliance checks.
var _ types.MessageStore = (*MessageStore)(nil)
var _ types.SessionStore = (*SessionStore)(nil)
