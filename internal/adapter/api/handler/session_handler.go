package handler

import (
	"log/slog"
	"net/http"

	"github.com/V4T54L/defect-lens/internal/domain"
	"github.com/V4T54L/defect-lens/internal/usecase"
)

const defaultMaxRequestBytes = 1 << 20

// SessionHandler exposes the viewer session over HTTP.
type SessionHandler struct {
	session         *usecase.Session
	panel           *usecase.ReportPanel
	logger          *slog.Logger
	maxRequestBytes int64
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(session *usecase.Session, panel *usecase.ReportPanel, logger *slog.Logger, maxRequestBytes int64) *SessionHandler {
	if maxRequestBytes <= 0 {
		maxRequestBytes = defaultMaxRequestBytes
	}
	return &SessionHandler{
		session:         session,
		panel:           panel,
		logger:          logger,
		maxRequestBytes: maxRequestBytes,
	}
}

type selectRequest struct {
	ID string `json:"id"`
}

type selectResponse struct {
	Applied bool         `json:"applied"`
	View    usecase.View `json:"view"`
}

type roleRequest struct {
	Role string `json:"role"`
}

// HealthCheck is a simple health check endpoint.
func (h *SessionHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// ListDefects handles requests for the defect list.
// GET /api/defects
func (h *SessionHandler) ListDefects(w http.ResponseWriter, r *http.Request) {
	defects := h.session.Defects()
	if defects == nil {
		defects = []domain.Defect{}
	}
	respondWithJSON(w, h.logger, http.StatusOK, defects)
}

// GetView returns the current report view.
// GET /api/session
func (h *SessionHandler) GetView(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, h.logger, http.StatusOK, h.panel.Render())
}

// SelectDefect changes the selected defect. Unknown ids are not an error;
// the response reports applied=false and the unchanged view.
// POST /api/session/select
func (h *SessionHandler) SelectDefect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if code, err := decodeJSON(w, r, h.maxRequestBytes, &req); err != nil {
		http.Error(w, "Bad Request: "+err.Error(), code)
		return
	}

	applied := h.session.SelectDefect(req.ID)
	respondWithJSON(w, h.logger, http.StatusOK, selectResponse{Applied: applied, View: h.panel.Render()})
}

// SetRole switches the viewing role.
// PUT /api/session/role
func (h *SessionHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if code, err := decodeJSON(w, r, h.maxRequestBytes, &req); err != nil {
		http.Error(w, "Bad Request: "+err.Error(), code)
		return
	}

	role, err := domain.ParseUserRole(req.Role)
	if err != nil {
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.session.SetRole(role)
	respondWithJSON(w, h.logger, http.StatusOK, h.panel.Render())
}
