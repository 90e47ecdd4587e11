package mcp

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProperty is returned for inconsistent property declarations.
	ErrInvalidProperty = errors.New("invalid property")
	// ErrInvalidTool is returned for inconsistent tool declarations.
	ErrInvalidTool = errors.New("invalid tool")
	// ErrUnknownTool is wrapped by invocation errors for unregistered names.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrMissingArgument is wrapped when a required argument cannot be bound.
	ErrMissingArgument = errors.New("missing valid argument")
	// ErrPayloadLimit is wrapped when a single tool does not fit a list page.
	ErrPayloadLimit = errors.New("payload size limit")
	// ErrToolFailed is wrapped when a handler panics.
	ErrToolFailed = errors.New("tool failed")
	// ErrInvalidRequest is wrapped for malformed tools/call params.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrMethodNotFound is wrapped for unsupported methods.
	ErrMethodNotFound = errors.New("method not implemented")
)

// ReplyError is an error whose message is sent verbatim in a JSON-RPC error reply.
type ReplyError struct {
	// Code is the sentinel describing the failure class.
	Code error
	// Message is the wire text.
	Message string
}

// Error returns the wire text.
func (e *ReplyError) Error() string {
	return e.Message
}

// Unwrap exposes the sentinel for errors.Is.
func (e *ReplyError) Unwrap() error {
	return e.Code
}

func replyErrorf(code error, format string, args ...any) *ReplyError {
	return &ReplyError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}
