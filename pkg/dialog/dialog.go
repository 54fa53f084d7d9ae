// Package dialog asks the user where a download should be saved.
package dialog

import (
	"context"
	"errors"
)

// ErrCanceled means the user dismissed the dialog. It is an outcome, not a failure.
var ErrCanceled = errors.New("save dialog canceled")

// SaveDialog prompts for a destination path, suggesting suggestedName.
type SaveDialog interface {
	PromptSavePath(ctx context.Context, suggestedName string) (string, error)
}
