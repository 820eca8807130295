package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/MegaGrindStone/sentichat/internal/chat"
	"github.com/MegaGrindStone/sentichat/internal/models"
)

type homePageData struct {
	Theme models.Theme
	Chat  chat.State
}

// colorSchemeHint is the client hint carrying the browser's prefers-color-scheme value.
const colorSchemeHint = "Sec-CH-Prefers-Color-Scheme"

// HandleHome renders the chat page with the current session state. The first request also
// initializes the theme, using the browser's color-scheme hint when nothing is saved.
func (m *Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	// Ask the browser to send its color scheme, and to retry this request with it.
	w.Header().Set("Accept-CH", colorSchemeHint)
	w.Header().Set("Critical-CH", colorSchemeHint)
	w.Header().Add("Vary", colorSchemeHint)

	if !m.theme.Initialized() {
		m.theme.Initialize(r.Context(), m.ambientDark(r))
	}

	data := homePageData{
		Theme: m.theme.Theme(),
		Chat:  m.chat.State(),
	}

	if err := m.templates.ExecuteTemplate(w, "home.html", data); err != nil {
		m.logger.Error("Failed to render home page", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (m *Main) ambientDark(r *http.Request) bool {
	hint := strings.Trim(strings.TrimSpace(r.Header.Get(colorSchemeHint)), `"`)
	switch hint {
	case "dark":
		return true
	case "light":
		return false
	default:
		return m.defaultTheme.Dark()
	}
}
