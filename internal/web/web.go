// Package web holds the viewer pages and their static assets.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// ViewerPage is the data for the live log viewer.
type ViewerPage struct {
	Title string
	// LogFile is the identifier passed to /ws/log, empty for the default log.
	LogFile         string
	DefaultLog      string
	ReconnectMillis int64
}

// LogFilesPage is the data for a day's file listing.
type LogFilesPage struct {
	Title    string
	Year     string
	Month    string
	Day      string
	LogFiles []string
}

// Renderer executes the embedded page templates.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

func (r *Renderer) Viewer(w io.Writer, p ViewerPage) error {
	return r.tmpl.ExecuteTemplate(w, "index.html", p)
}

func (r *Renderer) LogFiles(w io.Writer, p LogFilesPage) error {
	return r.tmpl.ExecuteTemplate(w, "log_files.html", p)
}

// Static serves dir when set, otherwise the embedded assets. Mount it under
// /static/ with the prefix stripped.
func Static(dir string) http.Handler {
	if dir != "" {
		return http.FileServer(http.Dir(dir))
	}
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// embedded path is fixed at build time
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
