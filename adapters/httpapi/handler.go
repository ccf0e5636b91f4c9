// Package httpapi exposes the relay over HTTP: the Telegram webhook, the
// direct scan trigger, and a health check.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jdelaire/scanrelay/core"
	"github.com/jdelaire/scanrelay/internal/scoring"
)

// Relay is the part of core.Dispatcher the HTTP layer needs.
type Relay interface {
	Handle(ctx context.Context, msg core.InboundMessage) core.Delivery
	Trigger(ctx context.Context, req core.ScanRequest) (scoring.Result, error)
}

// Options configures the HTTP handler.
type Options struct {
	// Token is the bot token expected in the path of token-checked routes.
	// When empty, every token-checked request is rejected.
	Token string

	// RootWebhook enables POST / without a token check, for hosts that
	// authenticate the caller before the request reaches the relay.
	RootWebhook bool
}

// Handler serves the relay endpoints.
type Handler struct {
	relay  Relay
	opts   Options
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewHandler creates the HTTP handler and registers its routes.
func NewHandler(relay Relay, opts Options, logger *slog.Logger) *Handler {
	h := &Handler{
		relay:  relay,
		opts:   opts,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /webhook/{token}", h.requireToken(h.handleWebhook))
	h.mux.HandleFunc("POST /scan/{token}", h.requireToken(h.handleScan))
	h.mux.HandleFunc("GET /healthz", h.handleHealth)
	if opts.RootWebhook {
		h.mux.HandleFunc("POST /{$}", h.handleWebhook)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.validToken(r.PathValue("token")) {
			h.logger.Warn("rejected request with invalid token", "path", r.URL.Path, "remote", r.RemoteAddr)
			writeJSON(w, http.StatusForbidden, core.Response{OK: false, Error: "invalid token"})
			return
		}
		next(w, r)
	}
}

func (h *Handler) validToken(got string) bool {
	if h.opts.Token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.opts.Token)) == 1
}

// handleWebhook always acknowledges so Telegram does not redeliver.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ack := core.Response{OK: true}

	data, err := readBody(r)
	if err != nil {
		h.logger.Warn("read update", "error", err)
		writeJSON(w, http.StatusOK, ack)
		return
	}

	msg, ok, err := core.ParseUpdate(data)
	if err != nil {
		h.logger.Warn("invalid update", "error", err)
		writeJSON(w, http.StatusOK, ack)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, ack)
		return
	}

	h.relay.Handle(r.Context(), msg)
	writeJSON(w, http.StatusOK, ack)
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, core.Response{OK: false, Error: err.Error()})
		return
	}

	req, err := core.ValidateScanRequest(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, core.Response{OK: false, Error: err.Error()})
		return
	}

	result, err := h.relay.Trigger(r.Context(), req)
	if err != nil {
		if errors.Is(err, core.ErrSymbolRequired) {
			writeJSON(w, http.StatusBadRequest, core.Response{OK: false, Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, core.Response{OK: false, Error: "scan failed"})
		return
	}

	writeJSON(w, http.StatusOK, core.Response{OK: true, Result: &result})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, core.Response{OK: true})
}

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, core.MaxPayloadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > core.MaxPayloadBytes {
		return nil, errors.New("payload too large")
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, resp core.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
