package lambda

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/dwsmith1983/actorrelay/internal/relay"
)

// HandleHTTP serves an API Gateway HTTP API request. It accepts the browser
// front end's POST /api/apify?route=... as well as the REST paths
// /api/actors, /api/actors/{actorID}/schema and /api/actors/{actorID}/runs.
func HandleHTTP(ctx context.Context, d *Deps, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if req.RequestContext.HTTP.Method != http.MethodPost {
		return respond(d, http.StatusMethodNotAllowed, relay.ErrorBody{Error: "Method not allowed"}), nil
	}

	route, actorID := routeOf(req)

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return respond(d, http.StatusBadRequest, relay.ErrorBody{Error: "invalid request body"}), nil
		}
		body = decoded
	}

	var rr relay.Request
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &rr); err != nil {
			d.Logger.Warn("invalid request body", "requestID", req.RequestContext.RequestID, "error", err)
			return respond(d, http.StatusBadRequest, relay.ErrorBody{Error: "invalid request body"}), nil
		}
	}
	if actorID != "" {
		rr.ActorID = actorID
	}
	rr.RequestID = req.RequestContext.RequestID

	status, out := d.Relay.Dispatch(ctx, route, rr)
	return respond(d, status, out), nil
}

// routeOf picks the operation from the route query parameter, falling back
// to the request path.
func routeOf(req events.APIGatewayV2HTTPRequest) (route, actorID string) {
	if r := req.QueryStringParameters["route"]; r != "" {
		return r, ""
	}
	parts := strings.Split(strings.Trim(req.RawPath, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "api" && parts[1] == "actors":
		return relay.RouteActors, ""
	case len(parts) == 4 && parts[0] == "api" && parts[1] == "actors" && parts[3] == "schema":
		return relay.RouteSchema, parts[2]
	case len(parts) == 4 && parts[0] == "api" && parts[1] == "actors" && parts[3] == "runs":
		return relay.RouteRun, parts[2]
	}
	return "", ""
}

func respond(d *Deps, status int, body interface{}) events.APIGatewayV2HTTPResponse {
	data, err := json.Marshal(body)
	if err != nil {
		d.Logger.Error("failed to encode response", "error", err)
		status = http.StatusInternalServerError
		data = []byte(`{"error":"failed to encode response"}`)
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(data),
	}
}
