package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cwbudde/clargs/internal/kernelargs"
	"github.com/cwbudde/clargs/internal/store"
)

// maxSourceBytes bounds the request body of /api/v1/extract.
const maxSourceBytes = 1 << 20

var validate = validator.New()

// ExtractRequest is the body of POST /api/v1/extract.
type ExtractRequest struct {
	Source string `json:"source" validate:"required"`
	// Path is recorded in the report and history, it is not read.
	Path string `json:"path,omitempty" validate:"omitempty,max=4096"`
	Save bool   `json:"save,omitempty"`
}

// ExtractResponse is the body of a successful extraction.
type ExtractResponse struct {
	Kernel   string                `json:"kernel"`
	Args     []kernelargs.Argument `json:"args"`
	ReportID string                `json:"reportId,omitempty"`
}

// handleExtract handles POST /api/v1/extract
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var req ExtractRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSourceBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err), "")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err), "")
		return
	}

	save := req.Save || s.saveReports
	if req.Save && s.store == nil {
		writeError(w, http.StatusBadRequest, "report storage is not configured", "")
		return
	}

	entry := store.HistoryEntry{
		Timestamp:  time.Now(),
		SourcePath: req.Path,
		SourceHash: store.HashSource(req.Source),
	}

	kernel, err := s.extractor.ExtractKernel(req.Source)
	if err != nil {
		kind := kernelargs.Kind(err)
		entry.ErrorKind = kind
		entry.Error = err.Error()
		s.record(entry)

		slog.Debug("Extraction failed", "kind", kind, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error(), kind)
		return
	}

	entry.KernelName = kernel.Name
	entry.ArgCount = len(kernel.Args)

	resp := ExtractResponse{Kernel: kernel.Name, Args: kernel.Args}
	if save && s.store != nil {
		report := store.NewReport(req.Path, req.Source, kernel)
		if err := s.store.SaveReport(report); err != nil {
			slog.Error("Failed to save report", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save report", "")
			return
		}
		resp.ReportID = report.ID
		entry.ReportID = report.ID
	}
	s.record(entry)

	writeJSON(w, http.StatusOK, resp)
}

// record appends entry to the history, if any, flushes it so readers see it
// while the server runs, and broadcasts it.
func (s *Server) record(entry store.HistoryEntry) {
	if s.history != nil {
		if err := s.history.Write(entry); err != nil {
			slog.Warn("Failed to write history entry", "error", err)
		} else if err := s.history.Flush(); err != nil {
			slog.Warn("Failed to flush history", "error", err)
		}
	}
	s.broadcaster.Broadcast(entry)
}

// validationMessage flattens validator errors into "field: reason" pairs.
func validationMessage(err error) string {
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		field := strings.ToLower(ve.Field())
		switch ve.Tag() {
		case "required":
			msgs = append(msgs, field+": required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s: must be at most %s characters", field, ve.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: failed %s validation", field, ve.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
