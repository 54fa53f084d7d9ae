package version

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	origVersion, origCommit := Version, Commit
	defer func() { Version, Commit = origVersion, origCommit }()

	Version, Commit = "1.2.0", ""
	assert.Equal(t, "1.2.0", String())

	Commit = "abc123"
	assert.Equal(t, "1.2.0 (abc123)", String())
}

func TestUserAgent(t *testing.T) {
	ua := UserAgent()
	assert.True(t, strings.HasPrefix(ua, "stashdrop/"+Version))
	assert.Contains(t, ua, runtime.GOOS)
}
