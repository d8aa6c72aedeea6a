package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/SashaDiz/autoved-sub000/internal/metrics"
)

const maxLeadBytes = 64 << 10

type leadRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
	Car     string `json:"car"`
}

type leadResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// submitLead relays a contact-form request to the operators' chat.
func (s *Server) submitLead(w http.ResponseWriter, r *http.Request) {
	var req leadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLeadBytes)).Decode(&req); err != nil {
		metrics.ObserveLead("invalid")
		writeJSON(w, http.StatusBadRequest, leadResponse{Error: "invalid JSON"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" || req.Phone == "" {
		metrics.ObserveLead("invalid")
		writeJSON(w, http.StatusBadRequest, leadResponse{Error: "name and phone are required"})
		return
	}
	if s.deps.Notifier == nil || s.cfg.Telegram.ChatID == "" {
		metrics.ObserveLead("unconfigured")
		writeJSON(w, http.StatusServiceUnavailable, leadResponse{Error: "lead relay not configured"})
		return
	}

	if err := s.deps.Notifier.SendMessage(r.Context(), s.cfg.Telegram.ChatID, formatLead(req)); err != nil {
		s.logger.Error("relay lead failed", zap.Error(err))
		metrics.ObserveLead("error")
		writeJSON(w, http.StatusBadGateway, leadResponse{Error: "failed to deliver request"})
		return
	}
	metrics.ObserveLead("ok")
	writeJSON(w, http.StatusOK, leadResponse{Success: true})
}

func formatLead(req leadRequest) string {
	var b strings.Builder
	b.WriteString("Новая заявка с сайта\n")
	b.WriteString("Имя: " + req.Name + "\n")
	b.WriteString("Телефон: " + req.Phone)
	if car := strings.TrimSpace(req.Car); car != "" {
		b.WriteString("\nАвтомобиль: " + car)
	}
	if msg := strings.TrimSpace(req.Message); msg != "" {
		b.WriteString("\nСообщение: " + msg)
	}
	return b.String()
}
