package launcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashdrop/stashdrop/pkg/dialog"
	"github.com/stashdrop/stashdrop/pkg/domain"
	sderrors "github.com/stashdrop/stashdrop/pkg/errors"
	"github.com/stashdrop/stashdrop/pkg/logging"
)

type fakeEngine struct {
	mu      sync.Mutex
	reqs    []domain.TransferRequest
	outcome *domain.Outcome
	started chan struct{}
	block   bool
}

func (f *fakeEngine) Run(ctx context.Context, req domain.TransferRequest) domain.Outcome {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block {
		<-ctx.Done()
		return domain.Failed(sderrors.KindTransport, "transfer canceled")
	}
	if f.outcome != nil {
		return *f.outcome
	}
	return domain.Succeeded(req.Destination.Path())
}

func (f *fakeEngine) requests() []domain.TransferRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.TransferRequest{}, f.reqs...)
}

type fakeTemp struct {
	mu     sync.Mutex
	purges int
	err    error
}

func (f *fakeTemp) Purge() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purges++
	return f.err
}

func (f *fakeTemp) Destination(filename string) domain.Destination {
	return domain.ManagedTempPath("/tmp/stashdrop-clipboard/" + filename)
}

type fakeDelivery struct {
	mu      sync.Mutex
	paths   []string
	outcome *domain.Outcome
}

func (f *fakeDelivery) Name() string { return "fake" }

func (f *fakeDelivery) DeliverFile(_ context.Context, path string) domain.Outcome {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	if f.outcome != nil {
		return *f.outcome
	}
	return domain.Succeeded(path)
}

type fakeDialog struct {
	path      string
	err       error
	suggested []string
}

func (f *fakeDialog) PromptSavePath(_ context.Context, suggested string) (string, error) {
	f.suggested = append(f.suggested, suggested)
	return f.path, f.err
}

type fakeWindow struct{ hidden int }

func (f *fakeWindow) Hide() { f.hidden++ }

type fixture struct {
	svc      *Service
	engine   *fakeEngine
	temp     *fakeTemp
	delivery *fakeDelivery
	dialog   *fakeDialog
	window   *fakeWindow
	events   *[]Event
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		engine:   &fakeEngine{},
		temp:     &fakeTemp{},
		delivery: &fakeDelivery{},
		dialog:   &fakeDialog{path: "/home/me/Downloads/logo.png"},
		window:   &fakeWindow{},
	}
	f.svc = NewService(Config{
		Engine:    f.engine,
		TempArea:  f.temp,
		Clipboard: f.delivery,
		Dialog:    f.dialog,
		Window:    f.window,
		Limits:    domain.Limits{MaxBytes: 1000},
		Logger:    logging.NewTestLogger(),
	})
	var (
		mu     sync.Mutex
		events []Event
	)
	f.svc.Subscribe(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	f.events = &events
	require.NoError(t, f.svc.Start())
	return f
}

var logoRef = domain.AssetRef{URL: "https://cdn.example/logo.png", Filename: "logo", Extension: "png"}

func TestStartPurges(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, 1, f.temp.purges)

	failing := NewService(Config{TempArea: &fakeTemp{err: errors.New("read-only")}, Logger: logging.NewTestLogger()})
	assert.Error(t, failing.Start())
	out := failing.RequestClipboardCopy(context.Background(), logoRef)
	assert.Equal(t, sderrors.KindTransport, out.Kind)
}

func TestRequestDownload(t *testing.T) {
	f := newFixture(t)

	out := f.svc.RequestDownload(context.Background(), logoRef)
	require.True(t, out.Success, out.Message)
	assert.Equal(t, "/home/me/Downloads/logo.png", out.Path)
	assert.Equal(t, []string{"logo.png"}, f.dialog.suggested)

	reqs := f.engine.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, domain.UserChosen, reqs[0].Destination.Kind())
	assert.Equal(t, logoRef, reqs[0].Source)
	assert.Equal(t, int64(1000), reqs[0].Limits.MaxBytes)
	assert.Equal(t, domain.DefaultTimeout, reqs[0].Limits.Timeout)

	require.Len(t, *f.events, 1)
	assert.Equal(t, OpDownload, (*f.events)[0].Operation)
}

func TestRequestDownloadCanceled(t *testing.T) {
	f := newFixture(t)
	f.dialog.err = dialog.ErrCanceled

	out := f.svc.RequestDownload(context.Background(), logoRef)
	assert.True(t, out.IsCanceled())
	assert.Empty(t, f.engine.requests())
}

func TestRequestDownloadDialogFailure(t *testing.T) {
	f := newFixture(t)
	f.dialog.err = errors.New("no display")

	out := f.svc.RequestDownload(context.Background(), logoRef)
	assert.False(t, out.Success)
	assert.False(t, out.IsCanceled())
	assert.Contains(t, out.Message, "no display")
	assert.Empty(t, f.engine.requests())
}

func TestRequestClipboardCopy(t *testing.T) {
	f := newFixture(t)

	out := f.svc.RequestClipboardCopy(context.Background(), logoRef)
	require.True(t, out.Success, out.Message)
	assert.Equal(t, "/tmp/stashdrop-clipboard/logo.png", out.Path)

	reqs := f.engine.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, domain.ManagedTemp, reqs[0].Destination.Kind())
	assert.Equal(t, []string{"/tmp/stashdrop-clipboard/logo.png"}, f.delivery.paths)
}

func TestRequestClipboardCopyTransferFailure(t *testing.T) {
	f := newFixture(t)
	failed := domain.Failed(sderrors.KindHTTPStatus, "unexpected status 404 Not Found")
	f.engine.outcome = &failed

	out := f.svc.RequestClipboardCopy(context.Background(), logoRef)
	assert.Equal(t, failed, out)
	assert.Empty(t, f.delivery.paths, "nothing is delivered after a failed transfer")
}

func TestRequestClipboardCopyDeliveryFailure(t *testing.T) {
	f := newFixture(t)
	failed := domain.Failed(sderrors.KindClipboard, "clipboard helper failed")
	f.delivery.outcome = &failed

	out := f.svc.RequestClipboardCopy(context.Background(), logoRef)
	assert.Equal(t, sderrors.KindClipboard, out.Kind)
	assert.Equal(t, 1, f.temp.purges, "staged file is left for the next purge")
}

func TestRequestHide(t *testing.T) {
	f := newFixture(t)
	f.svc.RequestHide()
	assert.Equal(t, 1, f.window.hidden)
}

func TestShutdownRejectsAndPurges(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Shutdown(context.Background()))
	assert.Equal(t, 2, f.temp.purges)

	out := f.svc.RequestDownload(context.Background(), logoRef)
	assert.False(t, out.Success)
	assert.Equal(t, sderrors.KindTransport, out.Kind)
	assert.Empty(t, f.dialog.suggested)
}

func TestShutdownWaitsForInflight(t *testing.T) {
	f := newFixture(t)
	f.engine.started = make(chan struct{}, 1)
	f.engine.block = true

	result := make(chan domain.Outcome, 1)
	go func() { result <- f.svc.RequestClipboardCopy(context.Background(), logoRef) }()
	<-f.engine.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := f.svc.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case out := <-result:
		assert.False(t, out.Success)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight transfer was not canceled")
	}
	assert.Equal(t, 2, f.temp.purges)
}

func TestConcurrentRequests(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, f.svc.RequestClipboardCopy(context.Background(), logoRef).Success)
		}()
	}
	wg.Wait()
	assert.Len(t, f.engine.requests(), 16)
	require.NoError(t, f.svc.Shutdown(context.Background()))
}
