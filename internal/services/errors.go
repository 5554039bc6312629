package services

import "errors"

var ErrEmptyReply = errors.New("model returned no text")

// ValidationError is a client input problem. No model call was made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// UpstreamError wraps any failure raised while invoking or reading from the
// model backend. Its message is the underlying error's message.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string { return e.Err.Error() }

func (e *UpstreamError) Unwrap() error { return e.Err }
