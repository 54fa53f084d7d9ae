package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"

	"github.com/stashdrop/stashdrop/cmd"
	"github.com/stashdrop/stashdrop/pkg/environment"
	"github.com/stashdrop/stashdrop/pkg/logging"
)

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

func main() {
	fs := afero.NewOsFs()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.GetLogger()

	env, err := environment.NewEnvironment(fs)
	if err != nil {
		logger.Error("Failed to set up environment", "error", err)
		os.Exit(1)
	}

	rootCmd := cmd.NewRootCommand(ctx, fs, env, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		stop()
		os.Exit(1)
	}
}
