package web

import (
	"bytes"
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/easydata/internal/logging"
	"github.com/JonMunkholm/easydata/internal/web/templates"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	render(w, r, templates.Index(s.service.List()))
}

// handleDatasetPage renders the first page of a dataset as an HTML table.
func (s *Server) handleDatasetPage(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Snapshot(chi.URLParam(r, "id"), 0, DefaultPageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render(w, r, templates.Dataset(snap))
}

// render buffers the page so a template error can still become an error
// response instead of a truncated document.
func render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("page write failed", "path", r.URL.Path, "error", err)
	}
}
