package ftp

import (
	"errors"
	"fmt"
)

// ErrAccountRequired is returned by Login when the server answers USER or
// PASS with code 332, meaning an ACCT command is needed to complete the
// login. Call Account to finish authenticating.
var ErrAccountRequired = errors.New("ftp: account required (332)")

// Error represents a well-formed FTP reply that signals failure for the
// command that provoked it (a 4xx/5xx code, or a code outside what the
// command accepts). It carries the full reply so callers can branch on
// semantics, e.g. 550 "file not found" vs 530 "not logged in".
type Error struct {
	// Command is the FTP command that was sent (e.g., "STOR file.txt")
	Command string

	// Message is the reply text received from the server
	Message string

	// Code is the three-digit FTP reply code (e.g., 550)
	Code int
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("ftp: %s failed: %s (code %d)", e.Command, e.Message, e.Code)
}

// Is4xx returns true if the reply code is in the 4xx range (transient failure).
func (e *Error) Is4xx() bool {
	return e.Code >= 400 && e.Code < 500
}

// Is5xx returns true if the reply code is in the 5xx range (permanent failure).
func (e *Error) Is5xx() bool {
	return e.Code >= 500 && e.Code < 600
}

// IsTemporary returns true if the failure is transient (4xx).
// Retrying is the caller's decision; the client never retries on its own.
func (e *Error) IsTemporary() bool {
	return e.Is4xx()
}

// IsPermanent returns true if the failure is permanent (5xx).
func (e *Error) IsPermanent() bool {
	return e.Is5xx()
}

// ProtocolError indicates that the server sent something the client could
// not parse: a malformed reply line, a reply code outside [100,599], a
// multi-line reply whose terminator carries a different code, or a PASV
// reply without a usable address tuple. The control connection must be
// considered unusable after a ProtocolError.
type ProtocolError struct {
	// Reason describes what was malformed, including the offending text.
	Reason string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return "ftp: protocol error: " + e.Reason
}

func protocolErrorf(format string, args ...any) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}
