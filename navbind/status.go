package navbind

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/navkey/navdetect/page"
)

// StatusHandler exposes the binder over HTTP for inspection and training.
//
//	GET    /status   — machine state, site, scan count, live bindings
//	GET    /result   — last detection result
//	POST   /activate — {"intent": "next"} invokes the bound element
//	POST   /train    — {"intent", "selector", "text"} stores an override
//	DELETE /train    — {"intent"} removes the override for the current site
func StatusHandler(b *Binder, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &statusHandler{binder: b, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/status", h.status)
	r.Get("/result", h.result)
	r.Post("/activate", h.activate)
	r.Post("/train", h.train)
	r.Delete("/train", h.untrain)
	return r
}

type statusHandler struct {
	binder *Binder
	logger *slog.Logger
}

type statusResponse struct {
	State    string    `json:"state"`
	Site     string    `json:"site"`
	Scans    int64     `json:"scans"`
	Bindings []Binding `json:"bindings"`
}

func (h *statusHandler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		State:    h.binder.State().String(),
		Site:     h.binder.Site(),
		Scans:    h.binder.Scans(),
		Bindings: h.binder.Bindings(),
	})
}

func (h *statusHandler) result(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.binder.Result())
}

type intentRequest struct {
	Intent   page.Intent `json:"intent"`
	Selector string      `json:"selector"`
	Text     string      `json:"text"`
}

func (r intentRequest) validIntent() bool {
	return r.Intent == page.IntentPrevious || r.Intent == page.IntentNext
}

func (h *statusHandler) activate(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.validIntent() {
		writeError(w, http.StatusBadRequest, "intent must be \"previous\" or \"next\"")
		return
	}
	if err := h.binder.Activate(r.Context(), req.Intent); err != nil {
		h.logger.Warn("navbind: activate via http failed", "intent", req.Intent, "error", err)
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activated": req.Intent})
}

func (h *statusHandler) train(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.validIntent() {
		writeError(w, http.StatusBadRequest, "intent must be \"previous\" or \"next\"")
		return
	}
	if req.Selector == "" {
		writeError(w, http.StatusBadRequest, "selector is required")
		return
	}
	if err := h.binder.Train(r.Context(), req.Intent, req.Selector, req.Text); err != nil {
		h.logger.Warn("navbind: train via http failed", "intent", req.Intent, "error", err)
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trained": req.Intent})
}

func (h *statusHandler) untrain(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.validIntent() {
		writeError(w, http.StatusBadRequest, "intent must be \"previous\" or \"next\"")
		return
	}
	if err := h.binder.Untrain(r.Context(), req.Intent); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"untrained": req.Intent})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
