package dialog

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
)

// Terminal asks for the save path on the controlling terminal. It is meant for headless and
// development setups where no desktop dialog helper exists.
type Terminal struct {
	dir    string
	prompt func(value *string) error
}

// NewTerminal suggests paths inside dir.
func NewTerminal(dir string) *Terminal {
	return &Terminal{dir: dir, prompt: runInput}
}

// PromptSavePath implements SaveDialog.
func (t *Terminal) PromptSavePath(ctx context.Context, suggestedName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(t.dir, suggestedName)
	if err := t.prompt(&path); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrCanceled
		}
		return "", err
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return "", ErrCanceled
	}
	return path, nil
}

func runInput(value *string) error {
	return huh.NewInput().
		Title("Save asset as").
		Prompt("> ").
		Value(value).
		Run()
}
