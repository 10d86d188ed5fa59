package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cwbudde/clargs/internal/store"
)

// handleReports handles GET /api/v1/reports
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusNotFound, "report storage is not configured", "")
		return
	}

	infos, err := s.store.ListReports()
	if err != nil {
		slog.Error("Failed to list reports", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list reports", "")
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleReportWithID handles GET and DELETE /api/v1/reports/:id
func (s *Server) handleReportWithID(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "report storage is not configured", "")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/reports/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}

	switch r.Method {
	case http.MethodGet:
		report, err := s.store.LoadReport(id)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	case http.MethodDelete:
		if err := s.store.DeleteReport(id); err != nil {
			s.writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error(), "")
		return
	}
	slog.Error("Report store error", "error", err)
	writeError(w, http.StatusInternalServerError, "report store error", "")
}
