package download

import (
	"github.com/dustin/go-humanize"
	"github.com/stashdrop/stashdrop/pkg/logging"
	"github.com/stashdrop/stashdrop/pkg/messages"
)

const progressEvery = 4 * 1024 * 1024

// WriteCounter tracks the total number of bytes written and logs progress every few MiB.
type WriteCounter struct {
	Total    uint64
	Expected int64
	logger   *logging.Logger
	reported uint64
}

// Write implements the io.Writer interface and updates the total byte count.
func (wc *WriteCounter) Write(p []byte) (int, error) {
	n := len(p)
	wc.Total += uint64(n)
	if wc.Total-wc.reported >= progressEvery {
		wc.reported = wc.Total
		wc.LogProgress()
	}
	return n, nil
}

// LogProgress reports the running total at debug level.
func (wc *WriteCounter) LogProgress() {
	if wc.logger == nil {
		return
	}
	if wc.Expected > 0 {
		wc.logger.Debug(messages.MsgTransferProgress,
			"received", humanize.Bytes(wc.Total),
			"of", humanize.Bytes(uint64(wc.Expected)))
		return
	}
	wc.logger.Debug(messages.MsgTransferProgress, "received", humanize.Bytes(wc.Total))
}
