package relay

import (
	"context"
	"net/http"

	"github.com/dwsmith1983/actorrelay/pkg/types"
)

// Route names accepted by Dispatch.
const (
	RouteActors = "actors"
	RouteSchema = "schema"
	RouteRun    = "run"
)

// ActorsResponse is the body of a successful actor listing.
type ActorsResponse struct {
	Actors []types.Actor `json:"actors"`
}

// Dispatch runs the named operation and returns the HTTP status and JSON
// body to answer with.
func (s *Service) Dispatch(ctx context.Context, route string, req Request) (int, interface{}) {
	switch route {
	case RouteActors:
		actors, err := s.ListActors(ctx, req)
		if err != nil {
			return s.failed(route, req, err)
		}
		if actors == nil {
			actors = []types.Actor{}
		}
		return http.StatusOK, ActorsResponse{Actors: actors}
	case RouteSchema:
		res, err := s.Schema(ctx, req)
		if err != nil {
			return s.failed(route, req, err)
		}
		return http.StatusOK, res
	case RouteRun:
		out, err := s.Run(ctx, req)
		if err != nil {
			return s.failed(route, req, err)
		}
		return Respond(out)
	default:
		return http.StatusBadRequest, ErrorBody{Error: "Invalid route"}
	}
}

func (s *Service) failed(route string, req Request, err error) (int, interface{}) {
	status, body := RespondError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("relay operation failed",
			"route", route, "requestID", req.RequestID, "status", status, "error", err)
	}
	return status, body
}
