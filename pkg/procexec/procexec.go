// Package procexec runs short-lived helper programs (clipboard tools, native dialogs) with
// argument vectors, optional stdin and a hard timeout. All external process execution in
// stashdrop goes through this package.
package procexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	execute "github.com/alexellis/go-execute/v2"

	"github.com/stashdrop/stashdrop/pkg/logging"
)

// detachWaitDelay bounds the wait for stdin delivery after a detached helper exits.
const detachWaitDelay = 2 * time.Second

// ErrTimeout is returned when a command outlives its timeout.
var ErrTimeout = errors.New("command timed out")

// Command describes one helper invocation. Args are passed as a vector, never through a shell.
type Command struct {
	Name    string
	Args    []string
	Stdin   string
	Env     []string
	Timeout time.Duration
	// Detach runs the helper without output pipes. Set it for helpers that fork a process
	// which outlives them, such as xclip and wl-copy serving a selection.
	Detach bool
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Name   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with code %d", e.Name, e.Code)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Name, e.Code, msg)
}

// Runner executes helper commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
	LookPath(name string) (string, error)
}

// ExecRunner runs commands on the host with go-execute.
type ExecRunner struct {
	logger *logging.Logger
}

// NewExecRunner creates a runner that logs through logger.
func NewExecRunner(logger *logging.Logger) *ExecRunner {
	return &ExecRunner{logger: logger}
}

// LookPath reports where name is installed.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run executes cmd and waits for it. A zero Timeout means no timeout beyond ctx.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	r.logger.Debug("executing", "command", cmd.Name, "args", cmd.Args, "timeout", cmd.Timeout, "detach", cmd.Detach)

	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	var (
		result Result
		err    error
	)
	if cmd.Detach {
		result, err = runDetached(runCtx, cmd)
	} else {
		result, err = runCaptured(runCtx, cmd)
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		r.logger.Warn("command timed out", "command", cmd.Name, "timeout", cmd.Timeout)
		return result, fmt.Errorf("%s: %w", cmd.Name, ErrTimeout)
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	if err != nil {
		r.logger.Error("command execution failed", "command", cmd.Name, "error", err)
		return result, err
	}
	if result.ExitCode != 0 {
		r.logger.Warn("command exited with non-zero code", "command", cmd.Name, "code", result.ExitCode, "stderr", result.Stderr)
		return result, &ExitError{Name: cmd.Name, Code: result.ExitCode, Stderr: result.Stderr}
	}

	r.logger.Debug("command executed successfully", "command", cmd.Name)
	return result, nil
}

func runCaptured(ctx context.Context, cmd Command) (Result, error) {
	task := execute.ExecTask{
		Command:     cmd.Name,
		Args:        cmd.Args,
		Env:         cmd.Env,
		Shell:       false,
		StreamStdio: false,
	}
	if cmd.Stdin != "" {
		task.Stdin = strings.NewReader(cmd.Stdin)
	}

	res, err := task.Execute(ctx)
	return Result{Stdout: res.Stdout, Stderr: res.Stderr, ExitCode: res.ExitCode}, err
}

// runDetached leaves stdout and stderr on the null device, so a background child the helper
// leaves behind cannot hold the call open. Nothing is captured.
func runDetached(ctx context.Context, cmd Command) (Result, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}
	c.WaitDelay = detachWaitDelay

	err := c.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{ExitCode: exitErr.ExitCode()}, nil
	}
	return Result{}, err
}
