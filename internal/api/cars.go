package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/SashaDiz/autoved-sub000/internal/catalog"
)

func (s *Server) listCars(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not configured")
		return
	}
	entries, err := s.deps.Catalog.List(r.Context())
	if err != nil {
		s.logger.Error("list catalog failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list catalog")
		return
	}
	if entries == nil {
		entries = []catalog.CatalogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
