package handlers

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/MegaGrindStone/sentichat"
	"github.com/MegaGrindStone/sentichat/internal/chat"
	"github.com/MegaGrindStone/sentichat/internal/models"
	"github.com/MegaGrindStone/sentichat/internal/theme"
	"github.com/tmaxmax/go-sse"
)

// Options tunes the handlers. Zero values select the defaults.
type Options struct {
	// MaxMessages bounds the transcript length.
	MaxMessages int
	// DefaultTheme is used when neither a saved preference nor the browser's color-scheme
	// hint is available.
	DefaultTheme models.Theme
	// Random overrides the source used to pick reply phrases.
	Random chat.RandomSource
	Logger *slog.Logger
}

// Main serves the chat page. It owns the chat and theme controllers and publishes their state
// changes to the browser through server-sent events.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template

	chat  *chat.Controller
	theme *theme.Controller

	defaultTheme models.Theme

	logger *slog.Logger
}

const (
	errLoggerKey = "err"

	sessionSSETopic = "session"
)

// SSE event types understood by the page script.
var (
	transcriptSSEType = sse.Type("transcript")
	controlsSSEType   = sse.Type("controls")
	scrollSSEType     = sse.Type("scroll")
	themeSSEType      = sse.Type("theme")
	closeSSEType      = sse.Type("close")
)

// NewMain parses the embedded templates and wires the controllers to analyzer and prefs.
func NewMain(analyzer chat.Analyzer, prefs theme.Store, opts Options) (*Main, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Templates are split into layout, pages and partials; the partials are also rendered
	// on their own for SSE updates.
	tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(
		sentichat.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	defaultTheme := opts.DefaultTheme
	if defaultTheme == "" {
		defaultTheme = models.ThemeLight
	}

	m := &Main{
		sseSrv: &sse.Server{
			OnSession: func(_ http.ResponseWriter, _ *http.Request) ([]string, bool) {
				return []string{sse.DefaultTopic, sessionSSETopic}, true
			},
		},
		templates:    tmpl,
		defaultTheme: defaultTheme,
		logger:       logger.With(slog.String("module", "handlers")),
	}

	pub := publisher{
		sseSrv:    m.sseSrv,
		templates: tmpl,
		logger:    m.logger,
	}
	m.chat = chat.NewController(analyzer, pub, chat.Config{
		MaxMessages: opts.MaxMessages,
		Random:      opts.Random,
		Logger:      logger,
	})
	m.theme = theme.NewController(prefs, pub, logger)

	return m, nil
}

// Chat exposes the chat controller.
func (m *Main) Chat() *chat.Controller {
	return m.chat
}

// Theme exposes the theme controller.
func (m *Main) Theme() *theme.Controller {
	return m.theme
}

// Shutdown stops accepting messages, waits for in-flight analyses so their replies are
// published, then tells the connected pages to close their event streams and stops the SSE
// server. Connections still open after 5 seconds are closed forcefully.
func (m *Main) Shutdown(ctx context.Context) error {
	m.chat.Close()

	done := make(chan struct{})
	go func() {
		m.chat.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Shutting down with analyses still in flight")
	}

	e := &sse.Message{Type: closeSSEType}
	// Browsers drop events without a data field.
	e.AppendData("bye")

	// We ignore the error here since we're shutting down anyway
	_ = m.sseSrv.Publish(e, sessionSSETopic)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}
