package handlers

import "net/http"

// DiagnosticHandler reports whether the provider key is present without
// revealing any of it
type DiagnosticHandler struct {
	keyLength int
}

func NewDiagnosticHandler(apiKey string) *DiagnosticHandler {
	return &DiagnosticHandler{keyLength: len(apiKey)}
}

// HandleDiagnostic handles GET /diagnostic
func (h *DiagnosticHandler) HandleDiagnostic(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"hasApiKey": h.keyLength > 0,
		"keyLength": h.keyLength,
	})
}
