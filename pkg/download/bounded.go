package download

import (
	"errors"
	"io"
)

// ErrSizeLimitExceeded is returned by BoundedReader once more than the limit has been read.
var ErrSizeLimitExceeded = errors.New("size limit exceeded")

// BoundedReader decorates a reader with a cumulative byte ceiling. It does not care where the
// bytes come from, so it catches chunked and unknown-length bodies that a Content-Length check
// cannot.
type BoundedReader struct {
	r     io.Reader
	limit int64
	read  int64
}

// NewBoundedReader wraps r. Reading exactly limit bytes is allowed; one more is not.
func NewBoundedReader(r io.Reader, limit int64) *BoundedReader {
	return &BoundedReader{r: r, limit: limit}
}

// Read implements io.Reader.
func (b *BoundedReader) Read(p []byte) (int, error) {
	if b.read > b.limit {
		return 0, ErrSizeLimitExceeded
	}
	n, err := b.r.Read(p)
	b.read += int64(n)
	if b.read > b.limit {
		return 0, ErrSizeLimitExceeded
	}
	return n, err
}

// BytesRead is the number of bytes pulled from the underlying reader so far.
func (b *BoundedReader) BytesRead() int64 {
	return b.read
}
