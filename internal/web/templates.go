// Package web renders the printable HTML pages: a single sign's QR print
// sheet and the stock report.
package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/sinalizacao/internal/engine"
	"github.com/erazemk/sinalizacao/internal/model"
	"github.com/erazemk/sinalizacao/internal/qr"
	webembed "github.com/erazemk/sinalizacao/web"
)

// Footer closes every printed page.
const Footer = "GRUPO NEWCOM - SISTEMAS DE SINALIZAÇÃO TÉCNICA"

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"footer":    func() string { return Footer },
		"qrPayload": qr.Payload,
		"formatDateTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006 15:04")
		},
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"print.html",
		"report.html",
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

// PrintData feeds print.html.
type PrintData struct {
	Title     string
	Item      model.Item
	QRSrc     string
	AutoPrint bool
}

// NewPrintData prepares the print sheet of one item, pointing at the
// remote QR image.
func NewPrintData(it model.Item) PrintData {
	return PrintData{
		Title:     "QR " + it.Code,
		Item:      it,
		QRSrc:     qr.URL(it),
		AutoPrint: true,
	}
}

// ReportData feeds report.html.
type ReportData struct {
	Title       string
	Items       []model.Item
	Stats       engine.Stats
	GeneratedAt time.Time
	GeneratedBy string
	AutoPrint   bool
}
