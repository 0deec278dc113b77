// Package http exposes a document workspace over a JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/internal/logging"
	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/exporter"
	"github.com/aretw0/folio/pkg/importer"
	"github.com/aretw0/folio/pkg/workspace"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIVersion is reported by /info.
const APIVersion = "0.1.0"

// maxBody bounds request bodies.
const maxBody = 8 << 20

// Server serves the documents of a workspace.
type Server struct {
	Workspace *workspace.Manager
	// Types lists the node types editors of the workspace understand.
	Types func() []string
	// Gatherer backs /metrics when set.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// NewHandler builds the router for s.
func NewHandler(s *Server) http.Handler {
	if s.Logger == nil {
		s.Logger = logging.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Get("/info", s.info)
	r.Get("/types", s.types)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", s.listDocuments)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getDocument)
			r.Put("/", s.putDocument)
			r.Delete("/", s.deleteDocument)
			r.Post("/paragraphs", s.appendParagraph)
			r.Post("/import", s.importDocument)
			r.Get("/export.md", s.exportMarkdown)
			r.Get("/export.html", s.exportHTML)
			r.Get("/events", s.events)
		})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "folio-http",
		"version":     strings.TrimSpace(folio.Version),
		"api_version": APIVersion,
	})
}

func (s *Server) types(w http.ResponseWriter, r *http.Request) {
	var tags []string
	if s.Types != nil {
		tags = s.Types()
	}
	writeJSON(w, http.StatusOK, map[string][]string{"types": tags})
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Workspace.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"documents": ids})
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	ed, err := s.editor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	doc, err := ed.Document()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if wantsYAML(r.Header.Get("Accept")) {
		data, err := codec.Marshal(doc, codec.FormatYAML)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(data)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) putDocument(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	f := codec.FormatJSON
	if wantsYAML(r.Header.Get("Content-Type")) {
		f = codec.FormatYAML
	}
	doc, err := codec.Unmarshal(data, f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	var version uint64
	err = s.Workspace.Do(r.Context(), id, func(ctx context.Context, ed *folio.Editor) error {
		if err := ed.Load(ctx, doc); err != nil {
			return err
		}
		version = ed.CurrentSnapshot().Version()
		return nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "version": version})
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.Workspace.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type paragraphRequest struct {
	Text string `json:"text"`
	Tag  string `json:"tag,omitempty"`
}

func (s *Server) appendParagraph(w http.ResponseWriter, r *http.Request) {
	var req paragraphRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	var key domain.NodeKey
	snap, err := s.Workspace.Edit(r.Context(), chi.URLParam(r, "id"), func(ctx context.Context, tx *folio.Tx) error {
		var err error
		key, err = AppendParagraph(tx, req.Text)
		return err
	}, folio.WithTag(req.Tag))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"key": key, "version": snap.Version()})
}

// AppendParagraph adds a paragraph holding text at the end of the document.
// Each line of text after the first starts after a line break.
func AppendParagraph(tx *folio.Tx, text string) (domain.NodeKey, error) {
	p, err := tx.Create(domain.NewParagraph())
	if err != nil {
		return "", err
	}
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			br, err := tx.Create(domain.NewLineBreak())
			if err != nil {
				return "", err
			}
			if err := tx.Append(p, br); err != nil {
				return "", err
			}
		}
		if line == "" {
			continue
		}
		k, err := tx.Create(domain.NewText(line))
		if err != nil {
			return "", err
		}
		if err := tx.Append(p, k); err != nil {
			return "", err
		}
	}
	return p, tx.Append(domain.RootKey, p)
}

func (s *Server) importDocument(w http.ResponseWriter, r *http.Request) {
	kind := importer.Kind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = importer.KindMarkdown
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	var version uint64
	err = s.Workspace.Do(r.Context(), id, func(ctx context.Context, ed *folio.Editor) error {
		if err := importer.Import(ctx, ed, kind, data); err != nil {
			return err
		}
		version = ed.CurrentSnapshot().Version()
		return nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "version": version})
}

func (s *Server) exportMarkdown(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "text/markdown; charset=utf-8", exporter.Markdown)
}

func (s *Server) exportHTML(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "text/html; charset=utf-8", exporter.HTML)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, contentType string, render func(*domain.Snapshot) (string, error)) {
	ed, err := s.editor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := render(ed.CurrentSnapshot())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = io.WriteString(w, out)
}

// events streams one server-sent event per commit of the document.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	id := chi.URLParam(r, "id")
	ed, err := s.editor(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	commits := make(chan commitEvent, 16)
	cancel := ed.Subscribe(func(_ context.Context, prev, next *folio.Snapshot) {
		ev := newCommitEvent(prev, next)
		select {
		case commits <- ev:
		default:
			s.Logger.Warn("dropping document event for slow client", "document_id", id, "version", ev.Version)
		}
	})
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-commits:
			data, err := json.Marshal(ev)
			if err != nil {
				s.Logger.Error("failed to encode document event", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: commit\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

type commitEvent struct {
	Version   uint64 `json:"version"`
	Tag       string `json:"tag,omitempty"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Destroyed int    `json:"destroyed"`
}

func newCommitEvent(prev, next *domain.Snapshot) commitEvent {
	d := domain.Diff(prev, next)
	return commitEvent{
		Version:   next.Version(),
		Tag:       next.Tag(),
		Created:   len(d.Created),
		Updated:   len(d.Updated),
		Destroyed: len(d.Destroyed),
	}
}

// editor opens an existing document. Unlike Workspace.Open it does not
// create missing ones.
func (s *Server) editor(ctx context.Context, id string) (*folio.Editor, error) {
	if _, err := s.Workspace.Store().Load(ctx, id); err != nil {
		return nil, err
	}
	return s.Workspace.Open(ctx, id)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusOf(err error) int {
	var sie *domain.StructuralInvariantError
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMalformedDocument), errors.As(err, &sie):
		return http.StatusUnprocessableEntity
	case errors.Is(err, importer.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func wantsYAML(header string) bool {
	return strings.Contains(header, "yaml")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Printf("encode error: %v\n", err)
	}
}
