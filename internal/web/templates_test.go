package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/sinalizacao/internal/engine"
	"github.com/erazemk/sinalizacao/internal/model"
)

func loadTemplates(t *testing.T) *Templates {
	t.Helper()
	ts, err := LoadTemplates()
	require.NoError(t, err)
	return ts
}

func TestRenderPrint(t *testing.T) {
	ts := loadTemplates(t)
	it := model.Item{ID: "1", Code: "S001", Description: "ENTRADA PEDESTRE", Size: "30x20cm", Shape: "RETANGULAR"}

	rec := httptest.NewRecorder()
	ts.Render(rec, "print.html", NewPrintData(it))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	body := rec.Body.String()
	for _, want := range []string{
		"ENTRADA PEDESTRE",
		"CÓDIGO: S001",
		"TAMANHO: 30x20cm | FORMATO: RETANGULAR",
		"api.qrserver.com/v1/create-qr-code/?data=S001-1&amp;size=400x400",
		Footer,
		"window.print()",
	} {
		assert.Contains(t, body, want)
	}
}

func TestRenderReport(t *testing.T) {
	ts := loadTemplates(t)
	items := []model.Item{
		{Code: "S001", Description: "ENTRADA PEDESTRE", Entry: 50, Exit: 10, MinStock: 15},
		{Code: "X003", Description: "EXTINTOR DE INCÊNDIO", Entry: 15, Exit: 12, MinStock: 5},
	}
	rec := httptest.NewRecorder()
	ts.Render(rec, "report.html", ReportData{
		Title:       "Relatório",
		Items:       items,
		Stats:       engine.Stats{TotalEntry: 65, TotalExit: 22, Balance: 43, CriticalCount: 1},
		GeneratedAt: time.Date(2025, 5, 24, 11, 0, 0, 0, time.UTC),
		GeneratedBy: "Ana Paula",
	})

	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, `class="critical"`), "exactly one critical row")
	for _, want := range []string{"24/05/2025 11:00", "por Ana Paula", "<strong>43</strong>", "EXTINTOR DE INCÊNDIO"} {
		assert.Contains(t, body, want)
	}
	assert.NotContains(t, body, "window.print()", "no auto-print unless asked")
}

func TestRenderUnknownTemplate(t *testing.T) {
	ts := loadTemplates(t)
	rec := httptest.NewRecorder()
	ts.Render(rec, "missing.html", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
