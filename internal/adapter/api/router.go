package api

import (
	"log/slog"
	"net/http"

	"github.com/V4T54L/defect-lens/internal/adapter/api/handler"
	"github.com/V4T54L/defect-lens/internal/adapter/api/middleware"
)

// NewLensRouter creates and configures the HTTP router for the report viewer API.
func NewLensRouter(logger *slog.Logger, sessionHandler *handler.SessionHandler, broker *handler.ViewBroker) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", sessionHandler.HealthCheck)

	// Defects
	mux.HandleFunc("GET /api/defects", sessionHandler.ListDefects)

	// Session
	mux.HandleFunc("GET /api/session", sessionHandler.GetView)
	mux.HandleFunc("POST /api/session/select", sessionHandler.SelectDefect)
	mux.HandleFunc("PUT /api/session/role", sessionHandler.SetRole)
	mux.Handle("GET /api/session/stream", broker)

	return middleware.Logging(logger)(middleware.CORS("*")(mux))
}

// NewRedactorRouter creates and configures the HTTP router for the redaction service.
func NewRedactorRouter(logger *slog.Logger, redactHandler *handler.RedactHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", redactHandler.Root)
	mux.HandleFunc("POST /redact-report", redactHandler.RedactReport)
	mux.HandleFunc("POST /analyze-image", redactHandler.AnalyzeImage)
	mux.HandleFunc("GET /audit", redactHandler.Audit)

	return middleware.Logging(logger)(middleware.CORS("*")(mux))
}
