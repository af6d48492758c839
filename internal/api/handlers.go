package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ferrows/mnemo/internal/models"
	"github.com/ferrows/mnemo/internal/relevance"
	"github.com/ferrows/mnemo/internal/store"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// SaveRecord handles POST /api/records.
func (h *Handler) SaveRecord(w http.ResponseWriter, r *http.Request) {
	var req SaveRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.SaveRecord(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeData(w, status, res)
}

// GetRecord handles GET /api/records/{id}.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetRecord(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, detail)
}

// ListRecords handles GET /api/records.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListRecords(store.ListFilter{
		Type:   models.RecordType(q.Get("type")),
		Tag:    q.Get("tag"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	if items == nil {
		items = []models.IndexEntry{}
	}
	writeData(w, http.StatusOK, map[string]any{
		"records": items,
		"total":   total,
	})
}

// DeleteRecord handles DELETE /api/records/{id}.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteRecord(id); err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"deleted": id})
}

type linkRequest struct {
	Source   string          `json:"source"`
	Target   string          `json:"target"`
	Relation models.Relation `json:"relation,omitempty"`
}

// Link handles POST /api/links.
func (h *Handler) Link(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.LinkRecords(req.Source, req.Target, req.Relation)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

// Unlink handles DELETE /api/links.
func (h *Handler) Unlink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	removed, err := h.svc.UnlinkRecords(req.Source, req.Target, req.Relation)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int{"removed": removed})
}

// Search handles GET /api/search. mode=keyword switches to the SQLite
// mirror; the default is semantic.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	limit, _ := strconv.Atoi(q.Get("limit"))

	if q.Get("mode") == "keyword" {
		hits, err := h.svc.SearchKeyword(query, limit)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]any{"results": orEmpty(hits)})
		return
	}

	threshold, _ := strconv.ParseFloat(q.Get("threshold"), 64)
	var types []models.RecordType
	if t := q.Get("type"); t != "" {
		for _, part := range strings.Split(t, ",") {
			types = append(types, models.RecordType(part))
		}
	}
	results, err := h.svc.SearchSemantic(r.Context(), query, types, threshold, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"results": orEmpty(results)})
}

// Similar handles GET /api/records/{id}/similar.
func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	threshold, _ := strconv.ParseFloat(q.Get("threshold"), 64)
	limit, _ := strconv.Atoi(q.Get("limit"))

	results, err := h.svc.FindSimilar(r.Context(), chi.URLParam(r, "id"), threshold, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"results": orEmpty(results)})
}

// InjectContext handles POST /api/context.
func (h *Handler) InjectContext(w http.ResponseWriter, r *http.Request) {
	var trig relevance.Trigger
	if err := json.NewDecoder(r.Body).Decode(&trig); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sels, err := h.svc.InjectContext(r.Context(), trig)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"selections": sels})
}

// ResetSession handles POST /api/session/reset.
func (h *Handler) ResetSession(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"session": h.svc.ResetSession()})
}

// Rebuild handles POST /api/index/rebuild.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	res, err := h.svc.Rebuild(force)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

// Health handles GET /api/doctor.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	report, err := h.svc.CheckHealth()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, report)
}

// Graph handles GET /api/graph.
func (h *Handler) Graph(w http.ResponseWriter, _ *http.Request) {
	payload, err := h.svc.Graph()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, payload)
}

// orEmpty replaces a nil slice with an empty one so JSON renders [].
func orEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
