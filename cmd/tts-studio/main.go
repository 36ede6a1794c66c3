// main package for the tts-studio command line
package main

import (
	"fmt"
	"os"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-studio/internal/config"
	"github.com/book-expert/tts-studio/internal/core"
	"github.com/book-expert/tts-studio/internal/manager"
	"github.com/book-expert/tts-studio/internal/store"
	"github.com/book-expert/tts-studio/internal/tts"
	"github.com/charmbracelet/lipgloss"
)

// Log file names.
const (
	logFileNameBootstrap = "tts-studio-bootstrap.log"
	logFileName          = "tts-studio.log"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// studio is what every command works against.
type studio struct {
	manager *manager.Manager
	close   func()
}

// openStudio loads the settings, opens the log and builds the manager.
func openStudio() (*studio, error) {
	bootstrapLog, err := logger.New(os.TempDir(), logFileNameBootstrap)
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap logger: %w", err)
	}

	cfg := config.LoadOrDefault(bootstrapLog)
	_ = bootstrapLog.Close()

	log, err := logger.New(cfg.Paths.BaseLogsDir, logFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	docStore := store.NewJSONStore(cfg.Paths.StateFile, func() *core.Document {
		return store.DefaultDocument(cfg.Paths.DefaultOutputDir)
	}, log)

	studioManager := manager.New(docStore, tts.NewClient(cfg.API.BaseURL, log), manager.Options{
		VoicesTimeout: cfg.API.VoicesTimeout(),
		PingTimeout:   cfg.API.PingTimeout(),
		Clock:         nil,
	}, log)

	return &studio{
		manager: studioManager,
		close: func() {
			closeErr := log.Close()
			if closeErr != nil {
				fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
			}
		},
	}, nil
}

func main() {
	err := newCLI(openStudio).execute(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("✗ "+err.Error()))
		os.Exit(1)
	}
}
