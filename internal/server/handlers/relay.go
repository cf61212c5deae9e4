package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dwsmith1983/actorrelay/internal/relay"
)

// Dispatch serves the browser front end's single endpoint, selecting the
// operation from the route query parameter.
func (h *Handlers) Dispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}
	h.serve(w, r, r.URL.Query().Get("route"))
}

// ListActors lists the actors of the account.
func (h *Handlers) ListActors(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, relay.RouteActors)
}

// Schema returns an actor's input schema and form fields.
func (h *Handlers) Schema(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, relay.RouteSchema)
}

// Run starts the actor and answers once the outcome is known.
func (h *Handlers) Run(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, relay.RouteRun)
}

func (h *Handlers) serve(w http.ResponseWriter, r *http.Request, route string) {
	req, err := decode(r)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	// A path actorID overrides the body's.
	if id := chi.URLParam(r, "actorID"); id != "" {
		req.ActorID = id
	}
	status, body := h.relay.Dispatch(r.Context(), route, req)
	h.writeJSON(w, status, body)
}
