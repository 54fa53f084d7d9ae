// Package bridge exposes the launcher operations to the UI over a loopback HTTP API.
package bridge

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stashdrop/stashdrop/pkg/catalog"
	"github.com/stashdrop/stashdrop/pkg/domain"
	sderrors "github.com/stashdrop/stashdrop/pkg/errors"
	"github.com/stashdrop/stashdrop/pkg/launcher"
	"github.com/stashdrop/stashdrop/pkg/logging"
	"github.com/stashdrop/stashdrop/pkg/messages"
)

// DefaultListen is the loopback address the bridge binds by default.
const DefaultListen = "127.0.0.1:47615"

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
	corsMaxAge        = 12 * time.Hour
)

// KindNotFound is reported when the catalog has no asset with the requested ID.
const KindNotFound sderrors.Kind = "NotFound"

// Launcher is the subset of the launcher service the bridge drives.
type Launcher interface {
	RequestDownload(ctx context.Context, ref domain.AssetRef) domain.Outcome
	RequestClipboardCopy(ctx context.Context, ref domain.AssetRef) domain.Outcome
	RequestHide()
	Subscribe(fn func(launcher.Event))
}

// Window is the visibility state the bridge reports and toggles.
type Window interface {
	Show()
	Toggle() bool
	Visible() bool
	Subscribe(fn func(visible bool))
}

// Catalog fetches the asset catalog.
type Catalog interface {
	FetchAll(ctx context.Context) (domain.Catalog, error)
	Find(ctx context.Context, id string) (domain.AssetRecord, error)
}

// Config holds the listener settings.
type Config struct {
	Listen      string
	CorsOrigins []string
	RatePerSec  float64
	RateBurst   int
}

// Server is the UI bridge.
type Server struct {
	cfg      Config
	launcher Launcher
	window   Window
	catalog  Catalog
	hub      *Hub
	router   *gin.Engine
	http     *http.Server
	logger   *logging.Logger
}

// NewServer builds the router and subscribes the event hub to the launcher and the window.
func NewServer(cfg Config, l Launcher, w Window, c Catalog, logger *logging.Logger) *Server {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if logger == nil {
		logger = logging.GetLogger()
	}

	s := &Server{
		cfg:      cfg,
		launcher: l,
		window:   w,
		catalog:  c,
		logger:   logger,
	}
	s.hub = NewHub(originChecker(cfg.CorsOrigins), logger)
	l.Subscribe(func(ev launcher.Event) { s.hub.Publish(OutcomeMessage(ev)) })
	w.Subscribe(func(visible bool) { s.hub.Publish(VisibilityMessage(visible)) })

	s.router = s.setupRouter()
	s.http = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ListenAndServe blocks until the server is shut down. A graceful shutdown returns nil.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info(messages.MsgBridgeListening, "addr", ln.Addr().String())
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes the event streams and stops the listener, waiting for active requests
// until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	err := s.http.Shutdown(ctx)
	s.logger.Info(messages.MsgBridgeStopped)
	return err
}

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(s.logger))
	router.Use(cors.New(cors.Config{
		AllowOriginFunc:  originChecker(s.cfg.CorsOrigins),
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: false,
		MaxAge:           corsMaxAge,
	}))

	v1 := router.Group("/v1")
	v1.GET("/health", s.handleHealth)
	v1.GET("/events", s.handleEvents)

	limited := v1.Group("", rateLimit(s.cfg.RatePerSec, s.cfg.RateBurst))
	limited.POST("/download", s.handleDownload)
	limited.POST("/clipboard", s.handleClipboard)
	limited.POST("/hide", s.handleHide)
	limited.POST("/show", s.handleShow)
	limited.POST("/toggle", s.handleToggle)
	limited.GET("/catalog", s.handleCatalog)
	limited.GET("/catalog/:id", s.handleAsset)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "visible": s.window.Visible()})
}

func (s *Server) handleEvents(c *gin.Context) {
	s.hub.Serve(c.Writer, c.Request, VisibilityMessage(s.window.Visible()))
}

func (s *Server) handleDownload(c *gin.Context) {
	ref, ok := bindAssetRef(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.launcher.RequestDownload(c.Request.Context(), ref))
}

func (s *Server) handleClipboard(c *gin.Context) {
	ref, ok := bindAssetRef(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.launcher.RequestClipboardCopy(c.Request.Context(), ref))
}

func (s *Server) handleHide(c *gin.Context) {
	s.launcher.RequestHide()
	c.JSON(http.StatusOK, gin.H{"visible": s.window.Visible()})
}

func (s *Server) handleShow(c *gin.Context) {
	s.window.Show()
	c.JSON(http.StatusOK, gin.H{"visible": s.window.Visible()})
}

func (s *Server) handleToggle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"visible": s.window.Toggle()})
}

func (s *Server) handleCatalog(c *gin.Context) {
	if s.catalog == nil {
		c.JSON(http.StatusServiceUnavailable, domain.Failed(sderrors.KindTransport, messages.ErrCatalogUnavailable))
		return
	}
	cat, err := s.catalog.FetchAll(c.Request.Context())
	if err != nil {
		s.logger.Warn(messages.ErrCatalogUnavailable, "error", err, "request", c.GetString(requestIDKey))
		c.JSON(http.StatusBadGateway, domain.Failed(sderrors.KindTransport, messages.ErrCatalogUnavailable+": "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (s *Server) handleAsset(c *gin.Context) {
	if s.catalog == nil {
		c.JSON(http.StatusServiceUnavailable, domain.Failed(sderrors.KindTransport, messages.ErrCatalogUnavailable))
		return
	}
	rec, err := s.catalog.Find(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, domain.Failed(KindNotFound, err.Error()))
	case err != nil:
		s.logger.Warn(messages.ErrCatalogUnavailable, "error", err, "request", c.GetString(requestIDKey))
		c.JSON(http.StatusBadGateway, domain.Failed(sderrors.KindTransport, messages.ErrCatalogUnavailable+": "+err.Error()))
	default:
		c.JSON(http.StatusOK, rec)
	}
}

// bindAssetRef decodes the request body, answering 400 when it is not a usable AssetRef.
func bindAssetRef(c *gin.Context) (domain.AssetRef, bool) {
	var ref domain.AssetRef
	if err := c.ShouldBindJSON(&ref); err != nil {
		c.JSON(http.StatusBadRequest, domain.Failed(sderrors.KindTransport, messages.ErrInvalidRequestBody+": "+err.Error()))
		return ref, false
	}
	if ref.URL == "" || ref.Filename == "" {
		c.JSON(http.StatusBadRequest, domain.Failed(sderrors.KindTransport, messages.ErrInvalidRequestBody+": url and filename are required"))
		return ref, false
	}
	return ref, true
}
