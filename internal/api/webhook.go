package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/SashaDiz/autoved-sub000/internal/ingest"
	"github.com/SashaDiz/autoved-sub000/internal/telegram"
)

const maxUpdateBytes = 1 << 20

// Webhook statuses that are not pipeline outcomes.
const (
	statusIgnored = "ignored"
)

type webhookResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	ID      string `json:"id,omitempty"`
}

// webhook processes the message variant of an update. Other variants are acknowledged so
// Telegram stops redelivering them.
func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	if s.deps.Pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion pipeline not configured")
		return
	}

	var update telegram.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if update.Message == nil {
		s.logger.Debug("ignoring update without message", zap.Int64("update_id", update.UpdateID))
		writeJSON(w, http.StatusOK, webhookResponse{Success: true, Status: statusIgnored})
		return
	}

	res, err := s.deps.Pipeline.Process(r.Context(), *update.Message, r.Header.Get(SecretHeader))
	if err != nil {
		s.logger.Error("process update failed",
			zap.Int64("update_id", update.UpdateID),
			zap.Error(err),
		)
	}

	status, body := webhookResult(res)
	writeJSON(w, status, body)
}

func webhookResult(res ingest.Result) (int, webhookResponse) {
	body := webhookResponse{
		Success: res.Processed(),
		Status:  string(res.Outcome),
		Reason:  res.Reason,
	}
	if res.Entry != nil {
		body.ID = res.Entry.ID
	}
	switch res.Outcome {
	case ingest.OutcomeUnauthorized:
		return http.StatusUnauthorized, body
	case ingest.OutcomeFailed:
		return http.StatusInternalServerError, body
	default:
		return http.StatusOK, body
	}
}

// parseText runs the extractor and validator on the text query parameter.
func (s *Server) parseText(w http.ResponseWriter, r *http.Request) {
	if s.deps.Parser == nil {
		writeError(w, http.StatusServiceUnavailable, "parser not configured")
		return
	}
	text := r.URL.Query().Get("text")
	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, "text required")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Parser.Diagnose(text))
}
