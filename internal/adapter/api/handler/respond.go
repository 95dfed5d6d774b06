package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

func respondWithJSON(w http.ResponseWriter, logger *slog.Logger, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithDetail writes a {"detail": ...} error body.
func respondWithDetail(w http.ResponseWriter, logger *slog.Logger, code int, detail string) {
	respondWithJSON(w, logger, code, map[string]string{"detail": detail})
}

// decodeJSON reads a single JSON object from r.Body, capped at maxBytes.
// The returned status is the one to answer with when err is non-nil.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) (int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return http.StatusRequestEntityTooLarge, err
		}
		if errors.Is(err, io.EOF) {
			return http.StatusBadRequest, errors.New("request body is empty")
		}
		return http.StatusBadRequest, err
	}
	return http.StatusOK, nil
}
