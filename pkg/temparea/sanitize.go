package temparea

import (
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const fallbackBase = "asset"

// stripMarks decomposes accented letters and drops the combining marks, so "café" keeps its
// letters as "cafe" instead of losing the "é" to the allow-list.
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeFilename drops any directory components, then keeps only ASCII letters, digits, '.',
// '-' and '_'. Leading dots are trimmed so the result is never hidden and never "." or "..".
func SanitizeFilename(name string) string {
	name = lastComponent(name)
	if folded, _, err := transform.String(stripMarks, name); err == nil {
		name = folded
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if isAllowed(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), ".")
}

func isAllowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '-', r == '_':
		return true
	}
	return false
}

// tokenSource hands out strictly increasing nanosecond timestamps.
type tokenSource struct {
	now  func() time.Time
	last atomic.Int64
}

func (t *tokenSource) next() int64 {
	candidate := t.now().UnixNano()
	for {
		last := t.last.Load()
		if candidate <= last {
			candidate = last + 1
		}
		if t.last.CompareAndSwap(last, candidate) {
			return candidate
		}
	}
}

// lastComponent strips everything up to the last '/' or '\', whatever the host OS.
func lastComponent(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

// uniqueName inserts "-<token>" between the sanitized base and its extension.
func uniqueName(filename string, token int64) string {
	name := lastComponent(filename)
	rawExt := filepath.Ext(name)

	base := SanitizeFilename(strings.TrimSuffix(name, rawExt))
	if base == "" {
		base = fallbackBase
	}
	ext := SanitizeFilename(rawExt)
	if ext != "" {
		ext = "." + ext
	}
	return base + "-" + strconv.FormatInt(token, 10) + ext
}
