package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/Alimustoofaa/Stream-Log/internal/logtree"
	"github.com/Alimustoofaa/Stream-Log/internal/web"
)

// errorBody is the JSON payload of every non-2xx response.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeResolveError maps resolver errors to status codes. notFound is the
// message used for a missing resource.
func (s *Server) writeResolveError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, logtree.ErrInvalidCoordinate):
		writeError(w, http.StatusBadRequest, "Invalid path")
	case errors.Is(err, logtree.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	default:
		s.log.WithError(err).WithField("path", r.URL.Path).Error("resolve")
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

// writePage buffers the template so a render error can still become a 500.
func (s *Server) writePage(w http.ResponseWriter, r *http.Request, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		s.log.WithError(err).WithField("path", r.URL.Path).Error("render page")
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// indexHandler renders the viewer for the default log.
func (s *Server) indexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writePage(w, r, func(buf *bytes.Buffer) error {
			return s.pages.Viewer(buf, s.viewerPage(""))
		})
	}
}

// dayHandler lists the *.log files recorded on one day.
func (s *Server) dayHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		files, err := s.resolver.ListLogFiles(vars["year"], vars["month"], vars["day"])
		if err != nil {
			s.writeResolveError(w, r, err, "Date directory not found")
			return
		}
		s.writePage(w, r, func(buf *bytes.Buffer) error {
			return s.pages.LogFiles(buf, web.LogFilesPage{
				Title:    s.cfg.Title,
				Year:     vars["year"],
				Month:    vars["month"],
				Day:      vars["day"],
				LogFiles: files,
			})
		})
	}
}

// viewerHandler renders the viewer configured to tail one dated file.
func (s *Server) viewerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		coord := logtree.LogCoordinate{Year: vars["year"], Month: vars["month"], Day: vars["day"], FileName: vars["name"]}
		if _, err := s.resolver.LogPath(coord); err != nil {
			s.writeResolveError(w, r, err, "Log file not found")
			return
		}
		s.writePage(w, r, func(buf *bytes.Buffer) error {
			return s.pages.Viewer(buf, s.viewerPage(coord.ID()))
		})
	}
}

// imageHandler serves a captured image with a content type inferred from
// its extension.
func (s *Server) imageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		p, err := s.resolver.ImagePath(logtree.ImageCoordinate{
			Year: vars["year"], Month: vars["month"], Day: vars["day"],
			SubPath: vars["path"], Name: vars["name"],
		})
		if err != nil {
			s.writeResolveError(w, r, err, "Image not found")
			return
		}

		f, err := os.Open(p)
		if err != nil {
			s.writeResolveError(w, r, logtree.ErrNotFound, "Image not found")
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			s.writeResolveError(w, r, err, "Image not found")
			return
		}
		http.ServeContent(w, r, filepath.Base(p), info.ModTime(), f)
	}
}

// streamHandler resolves the requested log before upgrading, so a bad
// file parameter gets a normal HTTP error instead of a dead socket.
func (s *Server) streamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coord, err := logtree.ParseLogID(r.URL.Query().Get("file"))
		if err != nil {
			s.writeResolveError(w, r, err, "Log file not found")
			return
		}
		p, err := s.resolver.LogPath(coord)
		if err != nil {
			s.writeResolveError(w, r, err, "Log file not found")
			return
		}
		s.streamer.Serve(w, r, p)
	}
}

func (s *Server) viewerPage(logID string) web.ViewerPage {
	return web.ViewerPage{
		Title:           s.cfg.Title,
		LogFile:         logID,
		DefaultLog:      s.cfg.LogFile,
		ReconnectMillis: s.cfg.PollInterval.Milliseconds(),
	}
}
