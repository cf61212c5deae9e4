package types

// RunOutcome is the single result of one orchestration call. Kind selects
// which of the remaining fields are meaningful:
//
//   - OutcomeSucceeded: Record (the full terminal status record)
//   - OutcomeFailed: ReasonCode, Message, MonitorURL
//   - OutcomeTimeout: AttemptsMade, MonitorURL
//   - OutcomeTransportError, OutcomeMalformed: Message, Err
//   - OutcomeCancelled: AttemptsMade, MonitorURL
type RunOutcome struct {
	Kind         OutcomeKind            `json:"kind"`
	RunID        string                 `json:"runId,omitempty"`
	MonitorURL   string                 `json:"monitorUrl,omitempty"`
	Record       map[string]interface{} `json:"record,omitempty"`
	ReasonCode   string                 `json:"reasonCode,omitempty"`
	Message      string                 `json:"message,omitempty"`
	AttemptsMade int                    `json:"attemptsMade"`
	Err          error                  `json:"-"`
}

// Succeeded reports whether the run reached SUCCEEDED.
func (o RunOutcome) Succeeded() bool { return o.Kind == OutcomeSucceeded }

// OutcomeEvent is published when an orchestration call finishes.
type OutcomeEvent struct {
	RequestID    string      `json:"requestId,omitempty"`
	ActorID      string      `json:"actorId"`
	RunID        string      `json:"runId,omitempty"`
	Kind         OutcomeKind `json:"kind"`
	MonitorURL   string      `json:"monitorUrl,omitempty"`
	Message      string      `json:"message,omitempty"`
	AttemptsMade int         `json:"attemptsMade"`
}
