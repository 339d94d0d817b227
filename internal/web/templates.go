package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/knjiznica/internal/desk"
	"github.com/erazemk/knjiznica/internal/model"
	webembed "github.com/erazemk/knjiznica/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatDate": formatDate,
		"orDash": func(s string) string {
			if s == "" {
				return "—"
			}
			return s
		},
		"returnKey": desk.ReturnKey,
	}
}

// formatDate renders timestamps and due dates as "Jan 2, 2006". Missing
// or unparsable values render as a dash.
func formatDate(v any) string {
	var t time.Time
	switch v := v.(type) {
	case time.Time:
		t = v
	case *time.Time:
		if v == nil {
			return "—"
		}
		t = *v
	case model.Date:
		parsed, err := v.Time()
		if err != nil {
			return "—"
		}
		t = parsed
	default:
		return "—"
	}
	if t.IsZero() {
		return "—"
	}
	return t.Format("Jan 2, 2006")
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"books.html",
		"members.html",
		"loans.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the data passed to all templates.
type PageData struct {
	Title string
	View  desk.View
}

// Server holds all dependencies for page handlers.
type Server struct {
	Desks     *desk.Registry
	Covers    CoverShelf
	Templates *Templates
}
