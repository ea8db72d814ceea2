package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"blackjack-ql/qlearn"

	"github.com/go-chi/chi/v5"
)

type HTTPHandler struct {
	lobby *Lobby
}

type errorResponse struct {
	Error string `json:"error"`
}

type policyResponse struct {
	RunID  string        `json:"run_id"`
	Policy qlearn.Policy `json:"policy"`
}

func NewHTTPHandler(l *Lobby) *HTTPHandler {
	return &HTTPHandler{lobby: l}
}

// RegisterRoutes mounts the lobby API. admin guards the training endpoint.
func (h *HTTPHandler) RegisterRoutes(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Get("/api/policy", h.handlePolicy)
	r.Get("/api/live", h.handleLive)
	r.Post("/api/play", h.handlePlay)
	r.With(admin).Post("/api/train", h.handleTrain)
}

func (h *HTTPHandler) handlePolicy(w http.ResponseWriter, r *http.Request) {
	p, runID, err := h.lobby.Policy()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, policyResponse{RunID: runID, Policy: p})
}

func (h *HTTPHandler) handleLive(w http.ResponseWriter, r *http.Request) {
	s := h.lobby.LiveSummary()
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":     s,
		"win_rate":    s.WinRate(),
		"open_tables": h.lobby.OpenTables(),
	})
}

func (h *HTTPHandler) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req PlayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.lobby.Play(req)
	if err != nil {
		var cfgErr *ConfigError
		switch {
		case errors.As(err, &cfgErr), errors.Is(err, ErrUnknownDecider):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNoPolicy):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "play failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HTTPHandler) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req TrainRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()
	run, err := h.lobby.Train(ctx, req)
	if err != nil {
		var cfgErr *ConfigError
		switch {
		case errors.As(err, &cfgErr):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrTrainBusy):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "training failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
