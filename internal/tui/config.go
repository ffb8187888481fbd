package tui

import (
	"log/slog"
	"time"

	"github.com/Veraticus/the-deals-must-flow/internal/tui/themes"
)

// Config holds TUI configuration.
type Config struct {
	Theme             themes.Theme
	Logger            *slog.Logger
	Width             int
	Height            int
	TransitionTimeout time.Duration
	StatusTimeout     time.Duration
	AltScreen         bool
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Theme:         themes.Default,
		Width:         120,
		Height:        32,
		StatusTimeout: 4 * time.Second,
		AltScreen:     true,
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithTransitionTimeout bounds each stage move. Zero waits forever.
func WithTransitionTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.TransitionTimeout = d
	}
}

// WithLogger sets the logger handed to the board.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithAltScreen toggles the alternate screen buffer.
func WithAltScreen(enabled bool) Option {
	return func(c *Config) {
		c.AltScreen = enabled
	}
}
