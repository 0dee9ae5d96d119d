package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/park285/lootsync/internal/obslog"
	"github.com/park285/lootsync/pkg/lootdto"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		obslog.L().Warn("response_encode_failed", zap.Error(err))
	}
}

// respondError sends the rendered message; code is the message key so
// clients can branch without matching text.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, lootdto.ErrorResponse{Error: message, Code: code})
}
