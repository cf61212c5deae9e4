package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Actor is a job definition hosted on the remote platform.
type Actor struct {
	Name    string `json:"name"`
	ActorID string `json:"actorId"`
}

// RunRequest is one user request to launch an actor and wait for it.
//
// JSON tags use "apiKey"/"actorId" to match the browser front end.
type RunRequest struct {
	AccountKey string                 `json:"apiKey"`
	ActorID    string                 `json:"actorId"`
	Input      map[string]interface{} `json:"input"`
}

// Validate checks that every field is present and non-empty.
func (r RunRequest) Validate() error {
	if r.AccountKey == "" {
		return fmt.Errorf("apiKey is required")
	}
	if r.ActorID == "" {
		return fmt.Errorf("actorId is required")
	}
	if len(r.Input) == 0 {
		return fmt.Errorf("input is required")
	}
	return nil
}

// RunHandle identifies a started run. It is produced by start-run and only
// used to poll status.
type RunHandle struct {
	RunID      string `json:"runId"`
	ActorID    string `json:"actorId,omitempty"`
	MonitorURL string `json:"monitorUrl"`
}

// RunRecord is one status observation of a run. Fields holds the complete
// record as returned by the platform.
type RunRecord struct {
	RunID         string                 `json:"runId"`
	Status        RunStatus              `json:"status"`
	StatusMessage string                 `json:"statusMessage,omitempty"`
	Fields        map[string]interface{} `json:"fields,omitempty"`
}

// SchemaProperty is one property of an actor input schema.
type SchemaProperty struct {
	Title       string      `json:"title,omitempty"`
	Type        string      `json:"type,omitempty"`
	Description string      `json:"description,omitempty"`
	Editor      string      `json:"editor,omitempty"`
	Default     interface{} `json:"default,omitempty"`
	Prefill     interface{} `json:"prefill,omitempty"`
}

// InputSchema is an actor's input schema. Order preserves the declaration
// order of Properties as found in the source document.
type InputSchema struct {
	Title         string                    `json:"title,omitempty"`
	Type          string                    `json:"type,omitempty"`
	SchemaVersion int                       `json:"schemaVersion,omitempty"`
	Properties    map[string]SchemaProperty `json:"properties,omitempty"`
	Required      []string                  `json:"required,omitempty"`
	Order         []string                  `json:"-"`
}

// UnmarshalJSON decodes the schema and records property declaration order.
func (s *InputSchema) UnmarshalJSON(data []byte) error {
	type plain InputSchema
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw struct {
		Properties json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	order, err := objectKeys(raw.Properties)
	if err != nil {
		return fmt.Errorf("reading property order: %w", err)
	}

	*s = InputSchema(p)
	s.Order = order
	return nil
}

// Keys returns property names in declaration order. Properties missing
// from Order follow in lexical order.
func (s InputSchema) Keys() []string {
	if len(s.Order) == len(s.Properties) {
		return s.Order
	}
	keys := make([]string, 0, len(s.Properties))
	seen := make(map[string]bool, len(s.Properties))
	for _, k := range s.Order {
		if _, ok := s.Properties[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range s.Properties {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func objectKeys(data json.RawMessage) ([]string, error) {
	if len(bytes.TrimSpace(data)) == 0 || string(bytes.TrimSpace(data)) == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// FormField is a schema property reshaped for rendering as an HTML input.
type FormField struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Placeholder string    `json:"placeholder"`
	Kind        FieldKind `json:"kind"`
	Type        string    `json:"type"`
}
