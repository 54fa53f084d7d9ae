// Package clipboard places a local file onto the OS clipboard as a file object, so that pasting
// copies the file rather than its bytes. One implementation exists per platform family and the
// right one is picked once, at construction.
package clipboard

import (
	"context"
	"errors"
	"time"

	"github.com/stashdrop/stashdrop/pkg/domain"
	sderrors "github.com/stashdrop/stashdrop/pkg/errors"
	"github.com/stashdrop/stashdrop/pkg/logging"
	"github.com/stashdrop/stashdrop/pkg/messages"
	"github.com/stashdrop/stashdrop/pkg/procexec"
)

// HelperTimeout bounds every external clipboard helper invocation.
const HelperTimeout = 10 * time.Second

// Delivery puts a file reference on the clipboard.
type Delivery interface {
	DeliverFile(ctx context.Context, path string) domain.Outcome
	Name() string
}

// New returns the delivery mechanism for goos (normally runtime.GOOS).
func New(goos string, runner procexec.Runner, logger *logging.Logger) Delivery {
	switch goos {
	case "windows":
		return NewFileDropList(runner, logger)
	case "darwin":
		return NewPOSIXFile(runner, logger)
	default:
		return NewURIList(runner, logger)
	}
}

// outcomeFor folds a helper error into the uniform outcome shape.
func outcomeFor(logger *logging.Logger, path string, err error) domain.Outcome {
	if err == nil {
		logger.Info(messages.MsgClipboardDelivered, "path", path)
		return domain.Succeeded(path)
	}

	var te *sderrors.TransferError
	switch {
	case errors.Is(err, procexec.ErrTimeout):
		te = sderrors.Wrap(err, sderrors.KindTimeout, messages.ErrClipboardTimeout)
	default:
		if existing, ok := sderrors.As(err); ok {
			te = existing
		} else {
			te = sderrors.Wrap(err, sderrors.KindClipboard, messages.ErrClipboardHelper)
		}
	}
	logger.Warn(messages.ErrClipboardHelper, "path", path, "kind", te.Kind, "error", err)
	return domain.FromError(te)
}
