package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// SuccessLevel sits between info and warn, so it is shown whenever info is.
const SuccessLevel = log.InfoLevel + 2

// Console is a Logger backed by charmbracelet/log.
type Console struct {
	logger *log.Logger
}

// NewConsole creates a console logger writing to w.
// Verbose enables debug output, which includes every executed command.
func NewConsole(w io.Writer, verbose bool) *Console {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: verbose,
		TimeFormat:      "15:04:05",
	})

	styles := log.DefaultStyles()
	styles.Levels[SuccessLevel] = lipgloss.NewStyle().
		SetString("DONE").
		Bold(true).
		MaxWidth(4).
		Foreground(lipgloss.Color("42"))
	logger.SetStyles(styles)

	return &Console{logger: logger}
}

func (c *Console) Debug(msg string, keysAndValues ...interface{}) {
	c.logger.Debug(msg, keysAndValues...)
}

func (c *Console) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Info(msg, keysAndValues...)
}

func (c *Console) Success(msg string, keysAndValues ...interface{}) {
	c.logger.Log(SuccessLevel, msg, keysAndValues...)
}

func (c *Console) Warn(msg string, keysAndValues ...interface{}) {
	c.logger.Warn(msg, keysAndValues...)
}

func (c *Console) Error(msg string, keysAndValues ...interface{}) {
	c.logger.Error(msg, keysAndValues...)
}
