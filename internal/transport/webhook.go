package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avvvet/coffeebuddy/internal/models"
	logx "github.com/avvvet/coffeebuddy/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 64 << 10

// WebhookServer receives inbound messages over HTTP.
type WebhookServer struct {
	handler MessageProcessor
	server  *http.Server
}

func NewWebhookServer(addr string, handler MessageProcessor) *WebhookServer {
	ws := &WebhookServer{handler: handler}
	ws.server = &http.Server{
		Addr:              addr,
		Handler:           ws.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return ws
}

func (ws *WebhookServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/webhook", ws.handleWebhook)
	return r
}

func (ws *WebhookServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var inbound models.InboundMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&inbound); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := validateInbound(&inbound); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	reply := ws.handler.ProcessMessage(r.Context(), &inbound)
	writeJSON(w, http.StatusOK, models.OutboundReply{UserID: inbound.UserID, Reply: reply})
}

// Start serves until Shutdown is called.
func (ws *WebhookServer) Start() error {
	logx.Info().Str("addr", ws.server.Addr).Msg("webhook server listening")
	if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webhook server: %w", err)
	}
	return nil
}

func (ws *WebhookServer) Shutdown(ctx context.Context) error {
	return ws.server.Shutdown(ctx)
}

func validateInbound(m *models.InboundMessage) error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("user_id is required")
	}
	if strings.TrimSpace(m.Text) == "" {
		return fmt.Errorf("text is required")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Error().Err(err).Msg("failed to write response")
	}
}
