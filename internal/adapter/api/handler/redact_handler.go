package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/V4T54L/defect-lens/internal/domain"
	"github.com/V4T54L/defect-lens/internal/usecase"
)

// ReportRedactor is the use case behind POST /redact-report.
type ReportRedactor interface {
	Redact(ctx context.Context, text string, role domain.UserRole) (*usecase.RedactReportResult, error)
}

// AuditLister is the use case behind GET /audit.
type AuditLister interface {
	Recent(ctx context.Context, limit int) ([]domain.SafetyLog, error)
}

// RedactHandler serves the redaction service API.
type RedactHandler struct {
	redactor        ReportRedactor
	audit           AuditLister
	logger          *slog.Logger
	maxRequestBytes int64
}

// NewRedactHandler creates a new RedactHandler.
func NewRedactHandler(redactor ReportRedactor, audit AuditLister, logger *slog.Logger, maxRequestBytes int64) *RedactHandler {
	if maxRequestBytes <= 0 {
		maxRequestBytes = defaultMaxRequestBytes
	}
	return &RedactHandler{
		redactor:        redactor,
		audit:           audit,
		logger:          logger,
		maxRequestBytes: maxRequestBytes,
	}
}

type redactRequest struct {
	Text *string `json:"text"`
	Role *string `json:"role"`
}

type statusResponse struct {
	Status   string   `json:"status"`
	Services []string `json:"services"`
}

// Root reports that the service is up.
// GET /
func (h *RedactHandler) Root(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, h.logger, http.StatusOK, statusResponse{
		Status:   "Agentic Backend Online",
		Services: []string{"Cosmos-2", "Safety-Guard"},
	})
}

// RedactReport redacts a report for the requesting role.
// POST /redact-report
func (h *RedactHandler) RedactReport(w http.ResponseWriter, r *http.Request) {
	var req redactRequest
	if code, err := decodeJSON(w, r, h.maxRequestBytes, &req); err != nil {
		respondWithDetail(w, h.logger, code, err.Error())
		return
	}
	if req.Text == nil || req.Role == nil {
		respondWithDetail(w, h.logger, http.StatusBadRequest, "text and role are required")
		return
	}
	role, err := domain.ParseUserRole(*req.Role)
	if err != nil {
		respondWithDetail(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.redactor.Redact(r.Context(), *req.Text, role)
	if err != nil {
		h.logger.Error("redaction failed", "error", err, "role", role)
		respondWithDetail(w, h.logger, http.StatusBadGateway, err.Error())
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, res)
}

// AnalyzeImage acknowledges an image analysis request. Vision analysis is
// performed upstream; this endpoint only confirms receipt.
// POST /analyze-image
func (h *RedactHandler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, h.logger, http.StatusOK, map[string]string{"msg": "Analysis complete"})
}

// Audit lists the most recent safety log entries.
// GET /audit?limit=N
func (h *RedactHandler) Audit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > usecase.MaxAuditLimit {
			respondWithDetail(w, h.logger, http.StatusBadRequest, fmt.Sprintf("limit must be an integer between 0 and %d", usecase.MaxAuditLimit))
			return
		}
		limit = n
	}

	entries, err := h.audit.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to read safety journal", "error", err)
		respondWithDetail(w, h.logger, http.StatusInternalServerError, "failed to read safety journal")
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, entries)
}
