package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/sinalizacao/internal/imaging"
	"github.com/erazemk/sinalizacao/internal/model"
	"github.com/erazemk/sinalizacao/internal/qr"
	"github.com/erazemk/sinalizacao/internal/query"
	"github.com/erazemk/sinalizacao/internal/web"
)

// ItemsHandler handles stock endpoints.
type ItemsHandler struct {
	*Deps
}

// viewFromQuery reads q, sort and dir. An empty sort keeps store order.
func viewFromQuery(r *http.Request) (string, *query.Sort) {
	q := r.URL.Query()
	key := q.Get("sort")
	if key == "" {
		return q.Get("q"), nil
	}
	dir := query.Direction(q.Get("dir"))
	if dir == "" {
		dir = query.Ascending
	}
	return q.Get("q"), &query.Sort{Key: key, Direction: dir}
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	term, sort := viewFromQuery(r)
	items, err := h.Engine.View(term, sort)
	if err != nil {
		engineError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var in model.ItemInput
	if !decodeValid(w, r, &in) {
		return
	}

	it, err := h.Engine.AddItem(r.Context(), claims.UserID, in)
	h.Metrics.ObserveMutation("add_item", err)
	if err != nil {
		engineError(w, err)
		return
	}

	slog.Info("item created", "user", claims.Name, "item", it.Code)
	jsonResponse(w, http.StatusCreated, it)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	it, err := h.Engine.Item(r.PathValue("id"))
	if err != nil {
		engineError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, it)
}

// Update handles PUT /api/items/{id}. The body replaces every editable field.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var in model.ItemInput
	if !decodeValid(w, r, &in) {
		return
	}

	it, err := h.Engine.EditItem(r.Context(), claims.UserID, r.PathValue("id"), in)
	h.Metrics.ObserveMutation("edit_item", err)
	if err != nil {
		engineError(w, err)
		return
	}

	slog.Info("item updated", "user", claims.Name, "item", it.Code)
	jsonResponse(w, http.StatusOK, it)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	it, err := h.Engine.DeleteItem(r.Context(), claims.UserID, r.PathValue("id"))
	h.Metrics.ObserveMutation("delete_item", err)
	if err != nil {
		engineError(w, err)
		return
	}

	slog.Info("item deleted", "user", claims.Name, "item", it.Code)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// QR handles GET /api/items/{id}/qr. ?size= sets the edge in pixels and
// ?download=1 makes it an attachment.
func (h *ItemsHandler) QR(w http.ResponseWriter, r *http.Request) {
	it, err := h.Engine.Item(r.PathValue("id"))
	if err != nil {
		engineError(w, err)
		return
	}

	size := qr.DefaultSize
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 64 || n > 1024 {
			jsonError(w, http.StatusBadRequest, "size must be between 64 and 1024")
			return
		}
		size = n
	}

	data, err := qr.PNG(it, size)
	if err != nil {
		slog.Error("failed to encode qr", "item", it.Code, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to encode qr")
		return
	}

	if r.URL.Query().Get("download") == "1" {
		setDisposition(w, "attachment", qr.Filename(it))
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}

// Label handles GET /api/items/{id}/label.
func (h *ItemsHandler) Label(w http.ResponseWriter, r *http.Request) {
	it, err := h.Engine.Item(r.PathValue("id"))
	if err != nil {
		engineError(w, err)
		return
	}

	code, err := qr.Image(it, imaging.QRBox)
	if err != nil {
		slog.Error("failed to encode qr", "item", it.Code, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to encode qr")
		return
	}
	label, err := imaging.Label(it, code)
	if err != nil {
		slog.Error("failed to render label", "item", it.Code, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to render label")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	setDisposition(w, "inline", imaging.Filename(it))
	w.Write(label)
}

// Print handles GET /api/items/{id}/print.
func (h *ItemsHandler) Print(w http.ResponseWriter, r *http.Request) {
	it, err := h.Engine.Item(r.PathValue("id"))
	if err != nil {
		engineError(w, err)
		return
	}
	h.Templates.Render(w, "print.html", web.NewPrintData(it))
}

// Report handles GET /api/report, a printable stock table honoring the
// same q, sort and dir parameters as the item list.
func (h *ItemsHandler) Report(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	term, sort := viewFromQuery(r)
	items, err := h.Engine.View(term, sort)
	if err != nil {
		engineError(w, err)
		return
	}
	h.Templates.Render(w, "report.html", web.ReportData{
		Title:       "Relatório de estoque",
		Items:       items,
		Stats:       h.Engine.Stats(),
		GeneratedAt: time.Now(),
		GeneratedBy: claims.Name,
		AutoPrint:   r.URL.Query().Get("print") == "1",
	})
}

// Stats handles GET /api/stats.
func (h *ItemsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	s := h.Engine.Stats()
	h.Metrics.SetCriticalItems(s.CriticalCount)
	jsonResponse(w, http.StatusOK, s)
}
