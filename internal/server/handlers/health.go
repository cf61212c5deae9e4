package handlers

import (
	"net/http"
)

// Health returns the server health status.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
