package a2a

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RoleUser is the role carried by every outbound invocation envelope.
const RoleUser = "user"

// Part is one text fragment of an envelope or response.
type Part struct {
	Text string `json:"text"`
}

// Envelope is the invocation request sent to an agent's message
// endpoint. The id is generated fresh per call and never reused; it
// correlates one request/response pair within the transport and is not
// an idempotency key.
type Envelope struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// NewEnvelope builds a fresh user envelope carrying a single text part.
func NewEnvelope(text string) *Envelope {
	return &Envelope{
		ID:    uuid.New().String(),
		Role:  RoleUser,
		Parts: []Part{{Text: text}},
	}
}

// ParseEnvelope decodes and validates an envelope from a request body.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// Validate checks the envelope invariants.
func (e *Envelope) Validate() error {
	if e.ID == "" {
		return ErrEnvelopeMissingID
	}
	if e.Role == "" {
		return ErrEnvelopeMissingRole
	}
	if len(e.Parts) == 0 {
		return ErrEnvelopeEmpty
	}
	return nil
}

// Text concatenates every part's text into the payload the executor
// sees.
func (e *Envelope) Text() string {
	var b strings.Builder
	for _, p := range e.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}
