package cmd

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/stashdrop/stashdrop/pkg/bridge"
	"github.com/stashdrop/stashdrop/pkg/catalog"
	"github.com/stashdrop/stashdrop/pkg/clipboard"
	"github.com/stashdrop/stashdrop/pkg/dialog"
	"github.com/stashdrop/stashdrop/pkg/download"
	"github.com/stashdrop/stashdrop/pkg/environment"
	"github.com/stashdrop/stashdrop/pkg/launcher"
	"github.com/stashdrop/stashdrop/pkg/logging"
	"github.com/stashdrop/stashdrop/pkg/procexec"
	"github.com/stashdrop/stashdrop/pkg/temparea"
	"github.com/stashdrop/stashdrop/pkg/window"
)

// shutdownGrace bounds how long in-flight transfers may run after a stop is requested.
const shutdownGrace = 10 * time.Second

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// App is the assembled service.
type App struct {
	Service *launcher.Service
	Bridge  *bridge.Server
	Temp    *temparea.Manager
}

// NewApp wires every component from env.
func NewApp(fs afero.Fs, env *environment.Environment, logger *logging.Logger) *App {
	runner := procexec.NewExecRunner(logger)
	temp := temparea.NewManager(fs, env.TempDir, logger)
	win := window.NewController()

	svc := launcher.NewService(launcher.Config{
		Engine:    download.NewEngine(fs, logger),
		TempArea:  temp,
		Clipboard: clipboard.New(runtime.GOOS, runner, logger),
		Dialog:    newSaveDialog(env, runner, logger),
		Window:    win,
		Limits:    env.Limits(),
		Logger:    logger,
	})

	var cat bridge.Catalog
	if env.CatalogURL != "" {
		cat = catalog.NewClient(env.CatalogURL, nil, logger)
	}

	srv := bridge.NewServer(bridge.Config{
		Listen:      env.Listen,
		CorsOrigins: env.CorsOrigins,
		RatePerSec:  env.RatePerSec,
		RateBurst:   env.RateBurst,
	}, svc, win, cat, logger)

	return &App{Service: svc, Bridge: srv, Temp: temp}
}

func newSaveDialog(env *environment.Environment, runner procexec.Runner, logger *logging.Logger) dialog.SaveDialog {
	if env.Dialog == environment.DialogTerminal {
		return dialog.NewTerminal(xdg.UserDirs.Download)
	}
	return dialog.NewNative(runtime.GOOS, runner, logger)
}

// RunService starts the service and blocks until ctx is canceled or the bridge fails. On the way
// out it drains in-flight requests and purges the temp area.
func RunService(ctx context.Context, fs afero.Fs, env *environment.Environment, logger *logging.Logger, out io.Writer) error {
	app := NewApp(fs, env, logger)
	if err := app.Service.Start(); err != nil {
		return fmt.Errorf("failed to prepare temp area: %w", err)
	}

	printBanner(out, env, app.Temp.Dir())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(app.Bridge.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if err := app.Service.Shutdown(shutdownCtx); err != nil {
			logger.Warn("service shutdown incomplete", "error", err)
		}
		if err := app.Bridge.Shutdown(shutdownCtx); err != nil {
			logger.Warn("bridge shutdown incomplete", "error", err)
		}
		return nil
	})
	return g.Wait()
}

func printBanner(out io.Writer, env *environment.Environment, tempDir string) {
	fmt.Fprintln(out, titleStyle.Render("stashdrop"))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("bridge: "), env.Listen)
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("catalog:"), env.CatalogURL)
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("temp:   "), tempDir)
	if env.DotenvFile != "" {
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("config: "), env.DotenvFile)
	}
}
