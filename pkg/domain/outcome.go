package domain

import (
	sderrors "github.com/stashdrop/stashdrop/pkg/errors"
)

// Outcome is the uniform result of a transfer or clipboard delivery. It is what the UI receives.
type Outcome struct {
	Success bool          `json:"success"`
	Path    string        `json:"path,omitempty"`
	Message string        `json:"message,omitempty"`
	Kind    sderrors.Kind `json:"kind,omitempty"`
}

// Succeeded reports a completed transfer or delivery of path.
func Succeeded(path string) Outcome {
	return Outcome{Success: true, Path: path}
}

// Failed reports a failure of the given kind.
func Failed(kind sderrors.Kind, reason string) Outcome {
	return Outcome{Kind: kind, Message: reason}
}

// Canceled reports a dismissed save dialog. It is not an engine failure.
func Canceled() Outcome {
	return Outcome{Kind: sderrors.KindUserCanceled, Message: "save canceled by user"}
}

// FromError folds any error into a failure outcome.
func FromError(err error) Outcome {
	if te, ok := sderrors.As(err); ok {
		return Failed(te.Kind, te.Reason())
	}
	return Failed(sderrors.KindTransport, err.Error())
}

// IsCanceled reports whether the outcome is a user cancellation.
func (o Outcome) IsCanceled() bool {
	return !o.Success && o.Kind == sderrors.KindUserCanceled
}

// Err returns nil on success, otherwise an error carrying the outcome's kind and message.
func (o Outcome) Err() error {
	if o.Success {
		return nil
	}
	if o.Message == "" {
		return sderrors.New(o.Kind, string(o.Kind))
	}
	return sderrors.New(o.Kind, o.Message)
}
