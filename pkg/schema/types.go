package schema

import "time"

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is a single conversation turn supplied by the caller. The gateway
// never keeps turns beyond the request that carried them.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Request is the decoded ingress payload. The prompt is the content of the
// latest user turn; PreviousTarget carries the caller's active intent across
// turns since the gateway holds no cross-request state.
type Request struct {
	Turns          []Turn `json:"messages"`
	PreviousTarget string `json:"previous_target,omitempty"`
}

// Prompt returns the content of the most recent user turn, or "".
func (r *Request) Prompt() string {
	for i := len(r.Turns) - 1; i >= 0; i-- {
		if r.Turns[i].Role == RoleUser {
			return r.Turns[i].Content
		}
	}
	return ""
}

// History returns every turn before the most recent user turn.
func (r *Request) History() []Turn {
	for i := len(r.Turns) - 1; i >= 0; i-- {
		if r.Turns[i].Role == RoleUser {
			return r.Turns[:i]
		}
	}
	return r.Turns
}

// EnrichedPayload is the request body forwarded to application endpoints and
// error targets: the original prompt plus everything the gateway resolved.
type EnrichedPayload struct {
	RequestID    string         `json:"request_id"`
	Prompt       string         `json:"prompt"`
	Target       string         `json:"target,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	SystemPrompt string         `json:"system_prompt,omitempty"`
	DriftChanged bool           `json:"drift_changed"`
	DriftFrom    string         `json:"drift_from,omitempty"`
	Unclassified bool           `json:"unclassified,omitempty"`
	ErrorKind    string         `json:"error_kind,omitempty"`
}

// Error kinds distinguishable by downstream callers.
const (
	ErrorKindClassification = "classification_failure"
	ErrorKindMissingParams  = "missing_parameters"
	ErrorKindUpstream       = "upstream_failure"
)

// ErrorKinds lists every kind an error target filter may name.
var ErrorKinds = []string{
	ErrorKindClassification,
	ErrorKindMissingParams,
	ErrorKindUpstream,
}

// KnownErrorKind reports whether kind names a defined error kind.
func KnownErrorKind(kind string) bool {
	for _, k := range ErrorKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Response metadata headers. Callers branch on these without parsing bodies.
const (
	HeaderErrorKind    = "X-Promptgate-Error-Kind"
	HeaderTarget       = "X-Promptgate-Target"
	HeaderProvider     = "X-Promptgate-Provider"
	HeaderUnclassified = "X-Promptgate-Unclassified"
	HeaderDrift        = "X-Promptgate-Drift"
	HeaderRequestID    = "X-Promptgate-Request-Id"
)
