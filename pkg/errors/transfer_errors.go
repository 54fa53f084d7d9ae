package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies why a transfer or clipboard delivery did not succeed.
type Kind string

const (
	KindHTTPStatus   Kind = "HttpStatusError"
	KindSizeLimit    Kind = "SizeLimitExceeded"
	KindTimeout      Kind = "TimeoutError"
	KindTransport    Kind = "TransportError"
	KindFilesystem   Kind = "FilesystemError"
	KindClipboard    Kind = "ClipboardError"
	KindUserCanceled Kind = "UserCanceled"
)

// TransferError is the structured error produced by the engine and the clipboard helpers
// before it is folded into an outcome.
type TransferError struct {
	Kind      Kind                   `json:"kind"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (te *TransferError) Error() string {
	if te.Cause != nil {
		return fmt.Sprintf("[%s]: %s: %v", te.Kind, te.Message, te.Cause)
	}
	return fmt.Sprintf("[%s]: %s", te.Kind, te.Message)
}

// Unwrap returns the underlying cause error
func (te *TransferError) Unwrap() error {
	return te.Cause
}

// Reason is the message surfaced to the UI: the message plus the cause, without the kind tag.
func (te *TransferError) Reason() string {
	if te.Cause != nil {
		return te.Message + ": " + te.Cause.Error()
	}
	return te.Message
}

// New creates a new structured transfer error
func New(kind Kind, message string) *TransferError {
	return &TransferError{
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now(),
		Context:   make(map[string]interface{}),
	}
}

// Wrap wraps a regular error as a TransferError
func Wrap(err error, kind Kind, message string) *TransferError {
	return New(kind, message).WithCause(err)
}

// WithCause adds the underlying cause error
func (te *TransferError) WithCause(err error) *TransferError {
	te.Cause = err
	return te
}

// WithContext adds arbitrary context to the error
func (te *TransferError) WithContext(key string, value interface{}) *TransferError {
	te.Context[key] = value
	return te
}

// As returns the first TransferError in err's chain.
func As(err error) (*TransferError, bool) {
	var te *TransferError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// KindOf reports the kind of err, defaulting to KindTransport for foreign errors.
func KindOf(err error) Kind {
	if te, ok := As(err); ok {
		return te.Kind
	}
	return KindTransport
}

// HasKind checks if an error carries a specific kind
func HasKind(err error, kind Kind) bool {
	if te, ok := As(err); ok {
		return te.Kind == kind
	}
	return false
}
