package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// HandleChat performs the primary chat action with the submitted "message" form field: it
// starts the chat when idle and sends the message otherwise. The resulting state reaches the
// page through the SSE stream.
func (m *Main) HandleChat(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		m.logger.Error("Failed to parse form", slog.String(errLoggerKey, err.Error()))
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	m.chat.Submit(r.Context(), r.PostForm.Get("message"))

	m.respond(w, r)
}

// HandleExit leaves the chat and clears the transcript.
func (m *Main) HandleExit(w http.ResponseWriter, r *http.Request) {
	m.chat.Exit()
	m.respond(w, r)
}

// HandleTheme toggles between light and dark mode.
func (m *Main) HandleTheme(w http.ResponseWriter, r *http.Request) {
	t := m.theme.Toggle(r.Context())
	m.logger.Debug("Theme toggled", slog.String("theme", string(t)))
	m.respond(w, r)
}

// HandleSSE streams state updates to the page.
func (m *Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)
}

// HandleHealth reports that the server is up.
func (m *Main) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		m.logger.Error("Failed to encode health response", slog.String(errLoggerKey, err.Error()))
	}
}

// respond acknowledges a form post. The page script sends X-Requested-With: fetch and gets
// its update over SSE, so it only needs an empty reply; a plain form post is redirected back
// to the page.
func (m *Main) respond(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Requested-With") == "fetch" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
