// Package launcher wires the UI operations to the transfer engine, the temp area and the
// clipboard, and owns the service lifecycle.
package launcher

import (
	"context"
	"errors"
	"sync"

	"github.com/stashdrop/stashdrop/pkg/clipboard"
	"github.com/stashdrop/stashdrop/pkg/dialog"
	"github.com/stashdrop/stashdrop/pkg/domain"
	sderrors "github.com/stashdrop/stashdrop/pkg/errors"
	"github.com/stashdrop/stashdrop/pkg/logging"
	"github.com/stashdrop/stashdrop/pkg/messages"
)

// Operation names carried by events.
const (
	OpDownload  = "download"
	OpClipboard = "clipboard"
)

// Transferer runs a single transfer to completion.
type Transferer interface {
	Run(ctx context.Context, req domain.TransferRequest) domain.Outcome
}

// TempArea is the managed directory clipboard copies are staged in.
type TempArea interface {
	Purge() error
	Destination(filename string) domain.Destination
}

// Hider hides the application window.
type Hider interface {
	Hide()
}

// Event is published after every download or clipboard request.
type Event struct {
	Operation string          `json:"operation"`
	Asset     domain.AssetRef `json:"asset"`
	Outcome   domain.Outcome  `json:"outcome"`
}

// Service executes UI requests. It is safe for concurrent use.
type Service struct {
	engine    Transferer
	temp      TempArea
	clipboard clipboard.Delivery
	dialog    dialog.SaveDialog
	window    Hider
	limits    domain.Limits
	logger    *logging.Logger

	mu        sync.Mutex
	accepting bool
	inflight  sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc

	subMu       sync.RWMutex
	subscribers []func(Event)
}

// Config collects the collaborators of a Service.
type Config struct {
	Engine    Transferer
	TempArea  TempArea
	Clipboard clipboard.Delivery
	Dialog    dialog.SaveDialog
	Window    Hider
	Limits    domain.Limits
	Logger    *logging.Logger
}

// NewService creates a stopped service. Call Start before issuing requests.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		engine:    cfg.Engine,
		temp:      cfg.TempArea,
		clipboard: cfg.Clipboard,
		dialog:    cfg.Dialog,
		window:    cfg.Window,
		limits:    cfg.Limits.WithDefaults(),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start purges leftovers from a previous run and begins accepting requests.
func (s *Service) Start() error {
	if err := s.temp.Purge(); err != nil {
		return err
	}
	s.mu.Lock()
	s.accepting = true
	s.mu.Unlock()
	s.logger.Info(messages.MsgServiceStarted)
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and purges the temp area. When ctx
// ends first, in-flight transfers are canceled and awaited so their partial files are removed
// before the purge.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.accepting = false
	s.mu.Unlock()
	s.logger.Info(messages.MsgServiceDraining)

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	var waitErr error
	select {
	case <-done:
	case <-ctx.Done():
		waitErr = ctx.Err()
		s.cancel()
		<-done
	}
	s.cancel()

	purgeErr := s.temp.Purge()
	s.logger.Info(messages.MsgServiceStopped)
	return errors.Join(waitErr, purgeErr)
}

// Subscribe registers fn to receive every request outcome.
func (s *Service) Subscribe(fn func(Event)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// RequestDownload asks the user where to save ref and transfers it there.
func (s *Service) RequestDownload(ctx context.Context, ref domain.AssetRef) domain.Outcome {
	ctx, done, ok := s.begin(ctx)
	if !ok {
		return s.publish(OpDownload, ref, shuttingDown())
	}
	defer done()

	name := ref.LocalName()
	s.logger.Info(messages.MsgDownloadRequested, "url", ref.URL, "name", name)

	path, err := s.dialog.PromptSavePath(ctx, name)
	switch {
	case errors.Is(err, dialog.ErrCanceled):
		s.logger.Info(messages.MsgSaveDialogCanceled, "name", name)
		return s.publish(OpDownload, ref, domain.Canceled())
	case err != nil:
		return s.publish(OpDownload, ref, domain.FromError(
			sderrors.Wrap(err, sderrors.KindFilesystem, messages.ErrSaveDialogFailed)))
	}

	return s.publish(OpDownload, ref, s.engine.Run(ctx, domain.TransferRequest{
		Source:      ref,
		Destination: domain.UserChosenPath(path),
		Limits:      s.limits,
	}))
}

// RequestClipboardCopy stages ref in the temp area and places the file on the clipboard. When
// delivery fails the staged file stays until the next purge.
func (s *Service) RequestClipboardCopy(ctx context.Context, ref domain.AssetRef) domain.Outcome {
	ctx, done, ok := s.begin(ctx)
	if !ok {
		return s.publish(OpClipboard, ref, shuttingDown())
	}
	defer done()

	dest := s.temp.Destination(ref.LocalName())
	s.logger.Info(messages.MsgClipboardRequested, "url", ref.URL, "dest", dest.Path())

	outcome := s.engine.Run(ctx, domain.TransferRequest{Source: ref, Destination: dest, Limits: s.limits})
	if !outcome.Success {
		return s.publish(OpClipboard, ref, outcome)
	}
	return s.publish(OpClipboard, ref, s.clipboard.DeliverFile(ctx, outcome.Path))
}

// RequestHide hides the window.
func (s *Service) RequestHide() {
	s.window.Hide()
}

// begin registers an in-flight request. The returned context is also canceled when a shutdown
// runs out of time.
func (s *Service) begin(ctx context.Context) (context.Context, func(), bool) {
	s.mu.Lock()
	if !s.accepting {
		s.mu.Unlock()
		return ctx, nil, false
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
		s.inflight.Done()
	}, true
}

func (s *Service) publish(op string, ref domain.AssetRef, outcome domain.Outcome) domain.Outcome {
	s.subMu.RLock()
	subs := append([]func(Event){}, s.subscribers...)
	s.subMu.RUnlock()

	ev := Event{Operation: op, Asset: ref, Outcome: outcome}
	for _, fn := range subs {
		fn(ev)
	}
	return outcome
}

func shuttingDown() domain.Outcome {
	return domain.Failed(sderrors.KindTransport, messages.ErrServiceShuttingDown)
}
