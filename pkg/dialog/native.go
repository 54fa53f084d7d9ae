package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stashdrop/stashdrop/pkg/logging"
	"github.com/stashdrop/stashdrop/pkg/procexec"
)

const suggestedNameEnv = "STASHDROP_SUGGESTED_NAME"

// Native shows the platform's own save dialog through a helper program. The suggested name is
// passed as an argument or an environment variable, never spliced into a script.
type Native struct {
	goos   string
	runner procexec.Runner
	logger *logging.Logger
}

// NewNative creates a native dialog for goos.
func NewNative(goos string, runner procexec.Runner, logger *logging.Logger) *Native {
	return &Native{goos: goos, runner: runner, logger: logger}
}

// PromptSavePath implements SaveDialog. The dialog is user driven, so no timeout applies.
func (n *Native) PromptSavePath(ctx context.Context, suggestedName string) (string, error) {
	cmd, err := n.command(suggestedName)
	if err != nil {
		return "", err
	}

	res, err := n.runner.Run(ctx, cmd)
	if err != nil {
		if isCancel(n.goos, err) {
			return "", ErrCanceled
		}
		return "", fmt.Errorf("%s: %w", cmd.Name, err)
	}

	path := strings.TrimRight(res.Stdout, "\r\n")
	if path == "" {
		return "", ErrCanceled
	}
	n.logger.Debug("save path chosen", "path", path)
	return path, nil
}

func (n *Native) command(suggestedName string) (procexec.Command, error) {
	switch n.goos {
	case "windows":
		script := strings.Join([]string{
			"Add-Type -AssemblyName System.Windows.Forms",
			"$d = New-Object System.Windows.Forms.SaveFileDialog",
			"$d.FileName = $env:" + suggestedNameEnv,
			"$d.OverwritePrompt = $true",
			"if ($d.ShowDialog() -eq [System.Windows.Forms.DialogResult]::OK) { [Console]::Out.Write($d.FileName) } else { exit 1 }",
		}, "; ")
		return procexec.Command{
			Name: "powershell",
			Args: []string{"-NoProfile", "-NonInteractive", "-STA", "-Command", script},
			Env:  []string{suggestedNameEnv + "=" + suggestedName},
		}, nil
	case "darwin":
		return procexec.Command{
			Name: "osascript",
			Args: []string{
				"-e", "on run argv",
				"-e", `POSIX path of (choose file name with prompt "Save asset" default name (item 1 of argv))`,
				"-e", "end run",
				suggestedName,
			},
		}, nil
	default:
		if _, err := n.runner.LookPath("zenity"); err == nil {
			return procexec.Command{
				Name: "zenity",
				Args: []string{"--file-selection", "--save", "--confirm-overwrite", "--title=Save asset", "--filename=" + suggestedName},
			}, nil
		}
		if _, err := n.runner.LookPath("kdialog"); err == nil {
			return procexec.Command{
				Name: "kdialog",
				Args: []string{"--getsavefilename", suggestedName},
			}, nil
		}
		return procexec.Command{}, errors.New("no native save dialog available (install zenity or kdialog)")
	}
}

// isCancel recognises the exit status each helper uses for a dismissed dialog.
func isCancel(goos string, err error) bool {
	var exitErr *procexec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	if goos == "darwin" {
		return strings.Contains(exitErr.Stderr, "-128")
	}
	return exitErr.Code == 1
}
