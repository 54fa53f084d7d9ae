package clipboard

import (
	"context"
	"strings"

	"github.com/stashdrop/stashdrop/pkg/domain"
	"github.com/stashdrop/stashdrop/pkg/logging"
	"github.com/stashdrop/stashdrop/pkg/messages"
	"github.com/stashdrop/stashdrop/pkg/procexec"
)

// FileDropList sets a one-entry file drop list through PowerShell and Windows Forms.
type FileDropList struct {
	runner procexec.Runner
	logger *logging.Logger
}

// NewFileDropList creates the Windows delivery.
func NewFileDropList(runner procexec.Runner, logger *logging.Logger) *FileDropList {
	return &FileDropList{runner: runner, logger: logger}
}

func (f *FileDropList) Name() string { return "file-drop-list" }

// DeliverFile implements Delivery.
func (f *FileDropList) DeliverFile(ctx context.Context, path string) domain.Outcome {
	f.logger.Debug(messages.MsgClipboardDelivering, "mechanism", f.Name(), "path", path)
	_, err := f.runner.Run(ctx, FileDropCommand(path))
	return outcomeFor(f.logger, path, err)
}

// FileDropCommand builds the PowerShell invocation for path.
func FileDropCommand(path string) procexec.Command {
	script := strings.Join([]string{
		"Add-Type -AssemblyName System.Windows.Forms",
		"$files = New-Object System.Collections.Specialized.StringCollection",
		"[void]$files.Add(" + QuotePowerShell(path) + ")",
		"[System.Windows.Forms.Clipboard]::SetFileDropList($files)",
	}, "; ")

	return procexec.Command{
		Name:    "powershell",
		Args:    []string{"-NoProfile", "-NonInteractive", "-STA", "-Command", script},
		Timeout: HelperTimeout,
	}
}

// powerShellQuotes are the characters PowerShell accepts as a single quote.
const powerShellQuotes = "'‘’‚‛"

// QuotePowerShell renders s as a PowerShell single-quoted literal. Inside such a literal nothing
// is expanded, and a quote character is written by doubling it.
func QuotePowerShell(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		if strings.ContainsRune(powerShellQuotes, r) {
			b.WriteRune(r)
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}
