// Package download is the transfer engine: it streams a remote resource to a local file under a
// byte ceiling and a timeout, and never leaves a partial file behind.
package download

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/stashdrop/stashdrop/pkg/domain"
	sderrors "github.com/stashdrop/stashdrop/pkg/errors"
	"github.com/stashdrop/stashdrop/pkg/logging"
	"github.com/stashdrop/stashdrop/pkg/messages"
	"github.com/stashdrop/stashdrop/pkg/version"
)

// partPattern names the staging file next to the destination. The random part keeps an
// existing "<name>.part" of the user's untouched.
const partPattern = ".*.part"

// finalMode is applied to the staging file before it is renamed onto the destination.
const finalMode = 0o644

var errTimedOut = errors.New("transfer timed out")

// Engine runs transfers. It only holds read-only configuration, so one Engine can serve any
// number of concurrent transfers into distinct destinations.
type Engine struct {
	fs     afero.Fs
	plain  *http.Client
	secure *http.Client
	logger *logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithHTTPClient uses c for plain http URLs.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.plain = c }
}

// WithHTTPSClient uses c for https URLs.
func WithHTTPSClient(c *http.Client) Option {
	return func(e *Engine) { e.secure = c }
}

// NewEngine creates an engine writing through fs.
func NewEngine(fs afero.Fs, logger *logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		fs: fs,
		plain: &http.Client{Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		}},
		secure: &http.Client{Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			TLSHandshakeTimeout: 10 * time.Second,
			ForceAttemptHTTP2:   true,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		}},
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes a prepared transfer request.
func (e *Engine) Run(ctx context.Context, req domain.TransferRequest) domain.Outcome {
	return e.Transfer(ctx, req.Source.URL, req.Destination.Path(), req.Limits)
}

// Transfer downloads rawURL into destPath. On any failure the destination does not exist when
// Transfer returns.
func (e *Engine) Transfer(ctx context.Context, rawURL, destPath string, limits domain.Limits) domain.Outcome {
	limits = limits.WithDefaults()
	logger := e.logger.With("transfer", uuid.NewString())
	logger.Debug(messages.MsgTransferStarted,
		"url", rawURL,
		"dest", destPath,
		"maxBytes", humanize.IBytes(uint64(limits.MaxBytes)),
		"timeout", limits.Timeout)

	n, err := e.transfer(ctx, logger, rawURL, destPath, limits)
	if err != nil {
		logger.Warn(messages.MsgTransferFailed, "kind", sderrors.KindOf(err), "error", err)
		return domain.FromError(err)
	}

	logger.Info(messages.MsgTransferCompleted, "dest", destPath, "size", humanize.Bytes(uint64(n)))
	return domain.Succeeded(destPath)
}

func (e *Engine) transfer(ctx context.Context, logger *logging.Logger, rawURL, destPath string, limits domain.Limits) (int64, error) {
	if destPath == "" {
		return 0, sderrors.New(sderrors.KindFilesystem, messages.ErrEmptyDestination)
	}

	client, target, err := e.clientFor(rawURL)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	wd := newWatchdog(limits.Timeout, func() { cancel(errTimedOut) })
	defer wd.stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return 0, sderrors.Wrap(err, sderrors.KindTransport, messages.ErrInvalidURL)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return 0, classifyAbort(ctx, err, messages.ErrHeadersTimeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, sderrors.New(sderrors.KindHTTPStatus, fmt.Sprintf("%s %s", messages.ErrUnexpectedStatus, resp.Status)).
			WithContext("status", resp.StatusCode)
	}

	if resp.ContentLength > limits.MaxBytes {
		return 0, sderrors.New(sderrors.KindSizeLimit, messages.ErrDeclaredTooLarge).
			WithContext("declared", resp.ContentLength).
			WithContext("limit", limits.MaxBytes)
	}

	out, err := afero.TempFile(e.fs, filepath.Dir(destPath), filepath.Base(destPath)+partPattern)
	if err != nil {
		return 0, sderrors.Wrap(err, sderrors.KindFilesystem, messages.ErrCreateDestination)
	}
	partPath := out.Name()

	wd.kick()
	body := NewBoundedReader(&idleReader{r: resp.Body, wd: wd}, limits.MaxBytes)
	counter := &WriteCounter{Expected: resp.ContentLength, logger: logger}

	n, copyErr := io.Copy(&destWriter{w: out}, io.TeeReader(body, counter))
	wd.stop()

	if copyErr != nil {
		_ = resp.Body.Close()
		e.discard(logger, out, partPath)
		return n, classifyCopy(ctx, copyErr, limits.MaxBytes)
	}

	if err := out.Close(); err != nil {
		e.remove(logger, partPath)
		return n, sderrors.Wrap(err, sderrors.KindFilesystem, messages.ErrFinalizeDestination)
	}

	if err := e.fs.Chmod(partPath, finalMode); err != nil {
		logger.Debug("could not relax staging file mode", "path", partPath, "error", err)
	}

	if err := e.fs.Rename(partPath, destPath); err != nil {
		e.remove(logger, partPath)
		return n, sderrors.Wrap(err, sderrors.KindFilesystem, messages.ErrFinalizeDestination)
	}

	return n, nil
}

func (e *Engine) clientFor(rawURL string) (*http.Client, *url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, sderrors.Wrap(err, sderrors.KindTransport, messages.ErrInvalidURL)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, nil, sderrors.New(sderrors.KindTransport, messages.ErrInvalidURL).WithContext("url", rawURL)
	}

	switch u.Scheme {
	case "http":
		return e.plain, u, nil
	case "https":
		return e.secure, u, nil
	default:
		return nil, nil, sderrors.New(sderrors.KindTransport, messages.ErrUnsupportedScheme+" "+u.Scheme)
	}
}

// discard closes and deletes a partially written file. Failures are logged only, so they never
// mask the error that caused the abort.
func (e *Engine) discard(logger *logging.Logger, f afero.File, path string) {
	if err := f.Close(); err != nil {
		logger.Warn(messages.MsgCloseAfterAbortFailed, "path", path, "error", err)
	}
	e.remove(logger, path)
}

func (e *Engine) remove(logger *logging.Logger, path string) {
	if err := e.fs.Remove(path); err != nil {
		logger.Warn(messages.MsgCleanupPartialFailed, "path", path, "error", err)
	}
}

// classifyAbort maps a failed request to a timeout, a cancellation or a transport error.
func classifyAbort(ctx context.Context, err error, timeoutMsg string) error {
	switch cause := context.Cause(ctx); {
	case errors.Is(cause, errTimedOut):
		return sderrors.Wrap(err, sderrors.KindTimeout, timeoutMsg)
	case cause != nil:
		return sderrors.Wrap(cause, sderrors.KindTransport, messages.ErrTransferCanceled)
	default:
		return sderrors.Wrap(err, sderrors.KindTransport, "request failed")
	}
}

func classifyCopy(ctx context.Context, err error, limit int64) error {
	if errors.Is(err, ErrSizeLimitExceeded) {
		return sderrors.New(sderrors.KindSizeLimit, messages.ErrStreamTooLarge).WithContext("limit", limit)
	}
	if te, ok := sderrors.As(err); ok {
		return te
	}
	return classifyAbort(ctx, err, messages.ErrBodyTimeout)
}

// destWriter tags write failures as filesystem errors so they are not mistaken for network ones.
type destWriter struct {
	w io.Writer
}

func (d *destWriter) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	if err != nil {
		return n, sderrors.Wrap(err, sderrors.KindFilesystem, messages.ErrWriteDestination)
	}
	return n, nil
}

// watchdog cancels the transfer when no progress is made for d.
type watchdog struct {
	timer *time.Timer
	d     time.Duration
}

func newWatchdog(d time.Duration, fire func()) *watchdog {
	return &watchdog{timer: time.AfterFunc(d, fire), d: d}
}

func (w *watchdog) kick() { w.timer.Reset(w.d) }
func (w *watchdog) stop() { w.timer.Stop() }

// idleReader restarts the watchdog every time a chunk arrives.
type idleReader struct {
	r  io.Reader
	wd *watchdog
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.wd.kick()
	}
	return n, err
}
