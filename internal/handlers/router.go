package handlers

import (
	"io/fs"
	"net/http"

	"github.com/MegaGrindStone/sentichat"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router wires the HTTP routes to the handlers and serves the embedded static assets.
func (m *Main) Router() (http.Handler, error) {
	staticFS, err := fs.Sub(sentichat.StaticFS, "static")
	if err != nil {
		return nil, err
	}
	fileServer := http.FileServer(http.FS(staticFS))

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	r.Get("/", m.HandleHome)
	r.Get("/healthz", m.HandleHealth)
	r.Get("/sse", m.HandleSSE)
	r.Post("/chat", m.HandleChat)
	r.Post("/chat/exit", m.HandleExit)
	r.Post("/theme", m.HandleTheme)

	return r, nil
}
