// Package common defines shared constants, sentinel errors and small helpers
// used by the melonmail client and the ledger daemon. Callers should use
// errors.Is to match the sentinel values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Ledger errors.
	ErrThreadNotFound  = errors.New("thread not found")
	ErrAccountNotFound = errors.New("account not found")

	// Content store errors.
	ErrContentNotFound = errors.New("content not found")
	ErrContentMismatch = errors.New("content does not match its hash")
	ErrEmptyUpload     = errors.New("upload produced no links")

	// Crypto errors (wrong key or corrupt payload).
	ErrDecrypt = errors.New("decryption failed")

	// Pipeline flow control.
	ErrFetchInProgress = errors.New("fetch already in progress for folder")
	ErrNoActiveThread  = errors.New("no active thread to reply to")
	ErrUnknownFolder   = errors.New("unknown folder")
	ErrNotLoggedIn     = errors.New("not logged in")

	// Transport / auth errors.
	ErrUnavailable    = errors.New("ledger unavailable")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternal       = errors.New("internal error")
)
