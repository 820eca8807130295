package theme

import (
	"context"
	"log/slog"
	"sync"

	"github.com/MegaGrindStone/sentichat/internal/models"
)

// Store persists the theme preference. Theme reports ok=false when nothing was saved yet.
type Store interface {
	Theme(ctx context.Context) (theme models.Theme, ok bool, err error)
	SetTheme(ctx context.Context, theme models.Theme) error
}

// Marker applies the page-wide visual marker for a theme.
type Marker interface {
	ApplyTheme(theme models.Theme)
}

const errLoggerKey = "err"

// Controller tracks the current theme and keeps the store and the marker in sync with it.
type Controller struct {
	store  Store
	marker Marker
	logger *slog.Logger

	mu          sync.Mutex
	initialized bool
	current     models.Theme
}

// NewController creates a Controller in light mode. Call Initialize to load the saved
// preference.
func NewController(store Store, marker Marker, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:   store,
		marker:  marker,
		logger:  logger.With(slog.String("module", "theme")),
		current: models.ThemeLight,
	}
}

// Initialize loads the saved preference, falling back to the host's ambient color scheme
// when none is saved or the store can't be read. Only the first call has an effect; later
// calls return the current theme.
func (c *Controller) Initialize(ctx context.Context, ambientDark bool) models.Theme {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return c.current
	}
	c.initialized = true

	saved, ok, err := c.store.Theme(ctx)
	if err != nil {
		c.logger.Warn("Failed to read theme preference", slog.String(errLoggerKey, err.Error()))
	}

	switch {
	case err == nil && ok:
		c.current = saved
	case ambientDark:
		c.current = models.ThemeDark
	default:
		c.current = models.ThemeLight
	}

	c.logger.Debug("Theme initialized",
		slog.String("theme", string(c.current)),
		slog.Bool("saved", err == nil && ok))

	c.marker.ApplyTheme(c.current)
	return c.current
}

// Toggle flips the theme, applies it and saves it. A failing store only makes the change
// non-durable.
func (c *Controller) Toggle(ctx context.Context) models.Theme {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.initialized = true
	c.current = c.current.Toggle()
	c.marker.ApplyTheme(c.current)

	if err := c.store.SetTheme(ctx, c.current); err != nil {
		c.logger.Warn("Failed to save theme preference",
			slog.String("theme", string(c.current)),
			slog.String(errLoggerKey, err.Error()))
	}

	return c.current
}

// Theme returns the current theme.
func (c *Controller) Theme() models.Theme {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Initialized reports whether Initialize or Toggle has run.
func (c *Controller) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}
