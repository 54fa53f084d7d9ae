package environment

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashdrop/stashdrop/pkg/domain"
)

func TestLoadDefaults(t *testing.T) {
	e, err := Load(afero.NewMemMapFs(), []string{"HOME=/home/me"}, "")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:47615", e.Listen)
	assert.Equal(t, ByteSize(domain.DefaultMaxBytes), e.MaxBytes)
	assert.Equal(t, 30*time.Second, e.Timeout)
	assert.Equal(t, DialogNative, e.Dialog)
	assert.False(t, e.Debug)
	assert.Empty(t, e.DotenvFile)
	assert.Equal(t, "/home/me", e.Extras["HOME"])
	assert.Equal(t, domain.DefaultLimits(), e.Limits())
}

func TestLoadOverrides(t *testing.T) {
	e, err := Load(afero.NewMemMapFs(), []string{
		"STASHDROP_MAX_BYTES=2 MB",
		"STASHDROP_TIMEOUT=5s",
		"STASHDROP_DIALOG=terminal",
		"STASHDROP_CORS_ORIGINS=http://localhost:3000;app://stashdrop",
		"DEBUG=true",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, ByteSize(2_000_000), e.MaxBytes)
	assert.Equal(t, domain.Limits{MaxBytes: 2_000_000, Timeout: 5 * time.Second}, e.Limits())
	assert.Equal(t, DialogTerminal, e.Dialog)
	assert.Equal(t, []string{"http://localhost:3000", "app://stashdrop"}, e.CorsOrigins)
	assert.True(t, e.Debug)
}

func TestLoadDotenv(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/home/me/.config/stashdrop/stashdrop.env"
	require.NoError(t, afero.WriteFile(fs, path, []byte(
		"# local settings\nSTASHDROP_LISTEN=127.0.0.1:9000\nSTASHDROP_CATALOG_URL=https://catalog.example\n"), 0o600))

	e, err := Load(fs, []string{"STASHDROP_LISTEN=127.0.0.1:9100"}, path)
	require.NoError(t, err)

	assert.Equal(t, path, e.DotenvFile)
	assert.Equal(t, "127.0.0.1:9100", e.Listen, "process environment wins over the file")
	assert.Equal(t, "https://catalog.example", e.CatalogURL)
}

func TestLoadMissingDotenv(t *testing.T) {
	e, err := Load(afero.NewMemMapFs(), nil, "/nowhere/stashdrop.env")
	require.NoError(t, err)
	assert.Empty(t, e.DotenvFile)
}

func TestLoadInvalid(t *testing.T) {
	cases := map[string][]string{
		"size":     {"STASHDROP_MAX_BYTES=lots"},
		"zero":     {"STASHDROP_MAX_BYTES=0"},
		"overflow": {"STASHDROP_MAX_BYTES=10 EB"},
		"duration": {"STASHDROP_TIMEOUT=forever"},
		"dialog":   {"STASHDROP_DIALOG=carrier-pigeon"},
	}
	for name, environ := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(afero.NewMemMapFs(), environ, "")
			assert.Error(t, err)
		})
	}
}

func TestByteSizeBounds(t *testing.T) {
	var b ByteSize
	require.NoError(t, b.UnmarshalEnvironmentValue("4 EiB"))
	assert.Equal(t, ByteSize(1<<62), b)

	err := b.UnmarshalEnvironmentValue("9223372036854775808")
	assert.ErrorContains(t, err, "exceeds")
	assert.Equal(t, ByteSize(1<<62), b, "a rejected value leaves the previous one")
}

func TestDotenvPath(t *testing.T) {
	assert.True(t, strings.HasSuffix(filepath.ToSlash(DotenvPath()), "/stashdrop/stashdrop.env"))
}
