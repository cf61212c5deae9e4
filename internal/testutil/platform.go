// Package testutil provides a scripted fake of the actor platform API.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dwsmith1983/actorrelay/pkg/types"
)

// Step is one scripted status answer.
type Step struct {
	Status  string // empty omits the field
	Message string
	// HTTPStatus, if set, answers with this code instead of a record.
	HTTPStatus int
}

// FakePlatform is an httptest server speaking the platform wire format.
// Each started run replays the script registered for its actor; the last
// step repeats once the script is exhausted.
type FakePlatform struct {
	Server *httptest.Server

	mu           sync.Mutex
	token        string
	actors       []types.Actor
	schemas      map[string]string
	buildSchemas map[string]string
	scripts      map[string][]Step
	startFails   []int
	startNoID    bool
	runs         map[string]*fakeRun
	nextRun      int
	startCalls   int
	statusCalls  int
	lastInput    map[string]interface{}
}

type fakeRun struct {
	actorID string
	script  []Step
	calls   int
}

// NewFakePlatform starts a fake accepting only the given bearer token.
// An empty token accepts any.
func NewFakePlatform(t *testing.T, token string) *FakePlatform {
	t.Helper()
	f := &FakePlatform{
		token:        token,
		schemas:      map[string]string{},
		buildSchemas: map[string]string{},
		scripts:      map[string][]Step{},
		runs:         map[string]*fakeRun{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2/acts", f.listActors)
	mux.HandleFunc("GET /v2/acts/{id}", f.getActor)
	mux.HandleFunc("GET /v2/acts/{id}/builds/default", f.getBuild)
	mux.HandleFunc("POST /v2/acts/{id}/runs", f.startRun)
	mux.HandleFunc("GET /v2/actor-runs/{id}", f.getRun)

	f.Server = httptest.NewServer(f.auth(mux))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake.
func (f *FakePlatform) URL() string { return f.Server.URL }

// AddActor registers an actor with an optional inputSchema document placed
// on the actor record.
func (f *FakePlatform) AddActor(id, name, schema string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actors = append(f.actors, types.Actor{ActorID: id, Name: name})
	if schema != "" {
		f.schemas[id] = schema
	}
}

// SetBuildSchema places an inputSchema on the actor's default build.
func (f *FakePlatform) SetBuildSchema(id, schema string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buildSchemas[id] = schema
}

// Script sets the status sequence for runs of actorID.
func (f *FakePlatform) Script(actorID string, steps ...Step) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[actorID] = steps
}

// FailStarts makes the next start-run calls answer with the given codes.
func (f *FakePlatform) FailStarts(codes ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startFails = append(f.startFails, codes...)
}

// OmitRunID makes start-run answer without a run id.
func (f *FakePlatform) OmitRunID() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startNoID = true
}

// StartCalls returns the number of start-run requests received.
func (f *FakePlatform) StartCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls
}

// StatusCalls returns the number of get-run requests received.
func (f *FakePlatform) StatusCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

// RunStatusCalls returns the number of get-run requests for one run.
func (f *FakePlatform) RunStatusCalls(runID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.runs[runID]; ok {
		return r.calls
	}
	return 0
}

// LastInput returns the body of the most recent start-run request.
func (f *FakePlatform) LastInput() map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastInput
}

func (f *FakePlatform) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.token != "" && r.Header.Get("Authorization") != "Bearer "+f.token {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"error": map[string]string{"type": "user-or-token-not-found", "message": "User was not found or authentication token is not valid"},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakePlatform) listActors(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	items := make([]map[string]interface{}, 0, len(f.actors))
	for _, a := range f.actors {
		items = append(items, map[string]interface{}{"id": a.ActorID, "name": a.Name})
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"total": len(items), "items": items},
	})
}

func (f *FakePlatform) getActor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasActor(id) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": map[string]string{"type": "record-not-found"}})
		return
	}
	data := map[string]interface{}{"id": id}
	if s, ok := f.schemas[id]; ok {
		data["inputSchema"] = json.RawMessage(s)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

func (f *FakePlatform) getBuild(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.buildSchemas[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": map[string]string{"type": "record-not-found"}})
		return
	}
	// Builds carry the schema as a JSON-encoded string.
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"id": "build-" + id, "inputSchema": s},
	})
}

func (f *FakePlatform) startRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var input map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&input)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	f.lastInput = input

	if len(f.startFails) > 0 {
		code := f.startFails[0]
		f.startFails = f.startFails[1:]
		writeJSON(w, code, map[string]interface{}{"error": map[string]string{"message": "start failed"}})
		return
	}
	if !f.hasActor(id) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": map[string]string{"type": "record-not-found"}})
		return
	}

	f.nextRun++
	runID := fmt.Sprintf("run-%d", f.nextRun)
	f.runs[runID] = &fakeRun{actorID: id, script: f.scripts[id]}

	data := map[string]interface{}{"actId": id, "status": "READY"}
	if !f.startNoID {
		data["id"] = runID
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"data": data})
}

func (f *FakePlatform) getRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++

	run, ok := f.runs[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": map[string]string{"type": "record-not-found"}})
		return
	}
	run.calls++

	step := Step{Status: "RUNNING"}
	if n := len(run.script); n > 0 {
		i := run.calls - 1
		if i >= n {
			i = n - 1
		}
		step = run.script[i]
	}
	if step.HTTPStatus != 0 {
		writeJSON(w, step.HTTPStatus, map[string]interface{}{"error": map[string]string{"message": "status failed"}})
		return
	}

	data := map[string]interface{}{
		"id":               id,
		"actId":            run.actorID,
		"defaultDatasetId": "ds-" + strings.TrimPrefix(id, "run-"),
	}
	if step.Status != "" {
		data["status"] = step.Status
	}
	if step.Message != "" {
		data["statusMessage"] = step.Message
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

func (f *FakePlatform) hasActor(id string) bool {
	for _, a := range f.actors {
		if a.ActorID == id {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
