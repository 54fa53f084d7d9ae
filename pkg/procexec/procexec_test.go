package procexec

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashdrop/stashdrop/pkg/logging"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX utilities")
	}
}

func TestExecRunner(t *testing.T) {
	skipOnWindows(t)
	runner := NewExecRunner(logging.NewTestLogger())
	ctx := context.Background()

	t.Run("SimpleCommand", func(t *testing.T) {
		res, err := runner.Run(ctx, Command{Name: "echo", Args: []string{"hello"}})
		require.NoError(t, err)
		assert.Equal(t, "hello\n", res.Stdout)
		assert.Equal(t, 0, res.ExitCode)
	})

	t.Run("ArgumentsAreNotInterpreted", func(t *testing.T) {
		res, err := runner.Run(ctx, Command{Name: "echo", Args: []string{`a"; rm -rf / #`}})
		require.NoError(t, err)
		assert.Equal(t, "a\"; rm -rf / #\n", res.Stdout)
	})

	t.Run("Stdin", func(t *testing.T) {
		res, err := runner.Run(ctx, Command{Name: "cat", Stdin: "file:///tmp/a%20b.png\n"})
		require.NoError(t, err)
		assert.Equal(t, "file:///tmp/a%20b.png\n", res.Stdout)
	})

	t.Run("NonZeroExitCode", func(t *testing.T) {
		_, err := runner.Run(ctx, Command{Name: "sh", Args: []string{"-c", "echo nope >&2; exit 3"}})
		var exitErr *ExitError
		require.True(t, errors.As(err, &exitErr))
		assert.Equal(t, 3, exitErr.Code)
		assert.Contains(t, exitErr.Error(), "nope")
	})

	t.Run("Timeout", func(t *testing.T) {
		start := time.Now()
		_, err := runner.Run(ctx, Command{Name: "sleep", Args: []string{"5"}, Timeout: 100 * time.Millisecond})
		assert.ErrorIs(t, err, ErrTimeout)
		assert.Less(t, time.Since(start), 3*time.Second)
	})

	t.Run("MissingBinary", func(t *testing.T) {
		_, err := runner.Run(ctx, Command{Name: "stashdrop-no-such-helper"})
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrTimeout)
	})
}

// writeForkingHelper creates a helper that consumes stdin, leaves a long-lived child behind
// and exits 0, the way xclip and wl-copy serve a selection.
func writeForkingHelper(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "selection-helper")
	script := "#!/bin/sh\ncat > \"$(dirname \"$0\")/received\"\n( sleep 20 ) &\nexit 0\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestDetachedHelperDoesNotWaitForChildren(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	helper := writeForkingHelper(t, dir)
	runner := NewExecRunner(logging.NewTestLogger())

	start := time.Now()
	_, err := runner.Run(context.Background(), Command{
		Name:    helper,
		Stdin:   "file:///tmp/logo.png\r\n",
		Timeout: 10 * time.Second,
		Detach:  true,
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	received, err := os.ReadFile(filepath.Join(dir, "received"))
	require.NoError(t, err)
	assert.Equal(t, "file:///tmp/logo.png\r\n", string(received))
}

func TestDetachedHelperFailures(t *testing.T) {
	skipOnWindows(t)
	runner := NewExecRunner(logging.NewTestLogger())
	ctx := context.Background()

	_, err := runner.Run(ctx, Command{Name: "sh", Args: []string{"-c", "exit 4"}, Detach: true})
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 4, exitErr.Code)

	start := time.Now()
	_, err = runner.Run(ctx, Command{Name: "sleep", Args: []string{"5"}, Timeout: 100 * time.Millisecond, Detach: true})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "osascript -e x", Command{Name: "osascript", Args: []string{"-e", "x"}}.String())
	assert.Equal(t, "pbpaste", Command{Name: "pbpaste"}.String())
}

func TestExitErrorWithoutStderr(t *testing.T) {
	err := &ExitError{Name: "xclip", Code: 1}
	assert.Equal(t, "xclip exited with code 1", err.Error())
}
