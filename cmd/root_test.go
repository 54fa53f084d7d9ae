package cmd

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashdrop/stashdrop/pkg/environment"
	"github.com/stashdrop/stashdrop/pkg/logging"
)

func testEnv(t *testing.T, extra ...string) (*environment.Environment, string) {
	t.Helper()
	tempDir := filepath.Join(t.TempDir(), "area")
	environ := append([]string{
		"STASHDROP_LISTEN=127.0.0.1:0",
		"STASHDROP_TEMP_DIR=" + tempDir,
		"STASHDROP_DIALOG=terminal",
	}, extra...)
	env, err := environment.Load(afero.NewMemMapFs(), environ, "")
	require.NoError(t, err)
	return env, tempDir
}

func TestRunServiceStopsOnCancel(t *testing.T) {
	fs := afero.NewOsFs()
	env, tempDir := testEnv(t)
	require.NoError(t, fs.MkdirAll(tempDir, 0o700))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(tempDir, "stale-1.png"), []byte("old"), 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	require.NoError(t, RunService(ctx, fs, env, logging.NewTestLogger(), &out))

	entries, err := afero.ReadDir(fs, tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp area is purged on start and on stop")
	assert.Contains(t, out.String(), "stashdrop")
	assert.Contains(t, out.String(), tempDir)
}

func TestRunServiceListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	env, _ := testEnv(t, "STASHDROP_LISTEN="+ln.Addr().String())
	require.Equal(t, ln.Addr().String(), env.Listen)

	done := make(chan error, 1)
	go func() {
		done <- RunService(context.Background(), afero.NewOsFs(), env, logging.NewTestLogger(), &bytes.Buffer{})
	}()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service kept running without a listener")
	}
}

func TestRootCommandFlags(t *testing.T) {
	env, tempDir := testEnv(t)
	logger := logging.NewTestLogger()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	root := NewRootCommand(ctx, afero.NewOsFs(), env, logger)
	root.SetArgs([]string{"--listen", "127.0.0.1:0", "--catalog", "https://catalog.example", "--debug"})
	root.SetOut(&bytes.Buffer{})
	require.NoError(t, root.Execute())

	assert.Equal(t, "https://catalog.example", env.CatalogURL)
	exists, err := afero.DirExists(afero.NewOsFs(), tempDir)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRootCommandRejectsArgs(t *testing.T) {
	env, _ := testEnv(t)
	root := NewRootCommand(context.Background(), afero.NewOsFs(), env, logging.NewTestLogger())
	root.SetArgs([]string{"serve"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	assert.Error(t, root.Execute())
}
