package clipboard

import (
	"context"
	"strings"

	"github.com/stashdrop/stashdrop/pkg/domain"
	"github.com/stashdrop/stashdrop/pkg/logging"
	"github.com/stashdrop/stashdrop/pkg/messages"
	"github.com/stashdrop/stashdrop/pkg/procexec"
)

// POSIXFile sets the clipboard to a POSIX file reference through osascript.
type POSIXFile struct {
	runner procexec.Runner
	logger *logging.Logger
}

// NewPOSIXFile creates the macOS delivery.
func NewPOSIXFile(runner procexec.Runner, logger *logging.Logger) *POSIXFile {
	return &POSIXFile{runner: runner, logger: logger}
}

func (p *POSIXFile) Name() string { return "posix-file" }

// DeliverFile implements Delivery.
func (p *POSIXFile) DeliverFile(ctx context.Context, path string) domain.Outcome {
	p.logger.Debug(messages.MsgClipboardDelivering, "mechanism", p.Name(), "path", path)
	_, err := p.runner.Run(ctx, POSIXFileCommand(path))
	return outcomeFor(p.logger, path, err)
}

// POSIXFileCommand builds the osascript invocation for path.
func POSIXFileCommand(path string) procexec.Command {
	return procexec.Command{
		Name:    "osascript",
		Args:    []string{"-e", "set the clipboard to (POSIX file " + QuoteAppleScript(path) + ")"},
		Timeout: HelperTimeout,
	}
}

var appleScriptEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// QuoteAppleScript renders s as an AppleScript double-quoted string literal.
func QuoteAppleScript(s string) string {
	return `"` + appleScriptEscaper.Replace(s) + `"`
}
