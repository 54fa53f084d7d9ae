package environment

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/stashdrop/stashdrop/pkg/domain"
)

// DotenvName is the optional settings file read from the user's config directory.
const DotenvName = "stashdrop/stashdrop.env"

// Dialog modes.
const (
	DialogNative   = "native"
	DialogTerminal = "terminal"
)

// ByteSize is a byte count that accepts human strings such as "500MiB" or "2GB".
type ByteSize int64

// UnmarshalEnvironmentValue implements env.Unmarshaler.
func (b *ByteSize) UnmarshalEnvironmentValue(data string) error {
	n, err := humanize.ParseBytes(strings.TrimSpace(data))
	if err != nil {
		return fmt.Errorf("invalid byte size %q: %w", data, err)
	}
	if n == 0 {
		return fmt.Errorf("invalid byte size %q: must be positive", data)
	}
	if n > math.MaxInt64 {
		return fmt.Errorf("invalid byte size %q: exceeds %d bytes", data, int64(math.MaxInt64))
	}
	*b = ByteSize(n)
	return nil
}

// Environment holds service settings loaded from the process environment and the dotenv file.
type Environment struct {
	CatalogURL  string        `env:"STASHDROP_CATALOG_URL,default=http://127.0.0.1:8080"`
	Listen      string        `env:"STASHDROP_LISTEN,default=127.0.0.1:47615"`
	MaxBytes    ByteSize      `env:"STASHDROP_MAX_BYTES,default=500MiB"`
	Timeout     time.Duration `env:"STASHDROP_TIMEOUT,default=30s"`
	TempDir     string        `env:"STASHDROP_TEMP_DIR"`
	Dialog      string        `env:"STASHDROP_DIALOG,default=native"`
	CorsOrigins []string      `env:"STASHDROP_CORS_ORIGINS,separator=;"`
	RatePerSec  float64       `env:"STASHDROP_RATE,default=20"`
	RateBurst   int           `env:"STASHDROP_RATE_BURST,default=40"`
	Debug       bool          `env:"DEBUG,default=false"`
	DotenvFile  string
	Extras      env.EnvSet
}

// Limits returns the transfer ceilings configured for this environment.
func (e *Environment) Limits() domain.Limits {
	return domain.Limits{MaxBytes: int64(e.MaxBytes), Timeout: e.Timeout}.WithDefaults()
}

// DotenvPath is where the optional dotenv file is looked up.
func DotenvPath() string {
	return filepath.Join(xdg.ConfigHome, filepath.FromSlash(DotenvName))
}

// NewEnvironment loads settings from os.Environ, layered over the dotenv file at DotenvPath.
func NewEnvironment(fs afero.Fs) (*Environment, error) {
	return Load(fs, os.Environ(), DotenvPath())
}

// Load builds an Environment from environ and the dotenv file at dotenvPath. Variables already
// present in environ win over the file. A missing file is not an error.
func Load(fs afero.Fs, environ []string, dotenvPath string) (*Environment, error) {
	es, err := env.EnvironToEnvSet(environ)
	if err != nil {
		return nil, err
	}

	loaded := ""
	if dotenvPath != "" {
		fileVars, err := readDotenv(fs, dotenvPath)
		if err != nil {
			return nil, err
		}
		if fileVars != nil {
			loaded = dotenvPath
		}
		for k, v := range fileVars {
			if _, ok := es[k]; !ok {
				es[k] = v
			}
		}
	}

	environment := &Environment{}
	if err := env.Unmarshal(es, environment); err != nil {
		return nil, err
	}
	environment.Extras = es
	environment.DotenvFile = loaded

	switch environment.Dialog {
	case DialogNative, DialogTerminal:
	default:
		return nil, fmt.Errorf("unknown dialog mode %q", environment.Dialog)
	}
	return environment, nil
}

func readDotenv(fs afero.Fs, path string) (map[string]string, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil || !exists {
		return nil, err
	}
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	vars, err := godotenv.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return vars, nil
}
