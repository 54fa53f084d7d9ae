package clipboard

import (
	"context"
	"net/url"
	"os"
	"path/filepath"

	textclip "github.com/atotto/clipboard"

	"github.com/stashdrop/stashdrop/pkg/domain"
	sderrors "github.com/stashdrop/stashdrop/pkg/errors"
	"github.com/stashdrop/stashdrop/pkg/logging"
	"github.com/stashdrop/stashdrop/pkg/messages"
	"github.com/stashdrop/stashdrop/pkg/procexec"
)

// URIList offers the file as a text/uri-list entry, the form Linux file managers paste as a file
// copy. The payload goes to the helper on stdin; no part of the path is ever an argument.
// When no uri-list capable helper is installed it falls back to the bare path as plain text.
type URIList struct {
	runner    procexec.Runner
	logger    *logging.Logger
	writeText func(string) error
	getenv    func(string) string
}

// NewURIList creates the freedesktop delivery.
func NewURIList(runner procexec.Runner, logger *logging.Logger) *URIList {
	u := &URIList{runner: runner, logger: logger, getenv: os.Getenv}
	if !textclip.Unsupported {
		u.writeText = textclip.WriteAll
	}
	return u
}

func (u *URIList) Name() string { return "uri-list" }

// DeliverFile implements Delivery.
func (u *URIList) DeliverFile(ctx context.Context, path string) domain.Outcome {
	u.logger.Debug(messages.MsgClipboardDelivering, "mechanism", u.Name(), "path", path)

	if cmd, ok := u.helperCommand(path); ok {
		_, err := u.runner.Run(ctx, cmd)
		return outcomeFor(u.logger, path, err)
	}

	if u.writeText == nil {
		return outcomeFor(u.logger, path, sderrors.New(sderrors.KindClipboard, messages.ErrClipboardUnavailable))
	}
	u.logger.Debug(messages.MsgClipboardFallback, "path", path)
	return outcomeFor(u.logger, path, u.writeText(path))
}

// helperCommand picks wl-copy on Wayland sessions and xclip otherwise.
func (u *URIList) helperCommand(path string) (procexec.Command, bool) {
	payload := URIListPayload(path)

	if u.getenv("WAYLAND_DISPLAY") != "" {
		if _, err := u.runner.LookPath("wl-copy"); err == nil {
			return procexec.Command{
				Name:    "wl-copy",
				Args:    []string{"--type", "text/uri-list"},
				Stdin:   payload,
				Timeout: HelperTimeout,
				Detach:  true,
			}, true
		}
	}
	if _, err := u.runner.LookPath("xclip"); err == nil {
		return procexec.Command{
			Name:    "xclip",
			Args:    []string{"-selection", "clipboard", "-t", "text/uri-list", "-i"},
			Stdin:   payload,
			Timeout: HelperTimeout,
			Detach:  true,
		}, true
	}
	return procexec.Command{}, false
}

// FileURI renders an absolute path as a percent-encoded file:// URI.
func FileURI(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// URIListPayload is a one-entry text/uri-list document (CRLF terminated).
func URIListPayload(path string) string {
	return FileURI(path) + "\r\n"
}
