package a2a

import "errors"

// Resolution errors.
var (
	// ErrResolveFailed indicates a capability card could not be fetched
	// or decoded. Connection failures, timeouts, bad status codes, and
	// malformed payloads all collapse into this.
	ErrResolveFailed = errors.New("a2a: card resolution failed")
)

// Invocation errors.
var (
	// ErrInvokeFailed indicates a remote invocation did not produce a
	// usable response (timeout, transport failure, error status).
	ErrInvokeFailed = errors.New("a2a: invocation failed")
	// ErrRemoteUnavailable indicates the remote agent is unreachable.
	ErrRemoteUnavailable = errors.New("a2a: remote agent unavailable")
)

// Envelope validation errors.
var (
	// ErrInvalidEnvelope indicates the envelope format is invalid.
	ErrInvalidEnvelope = errors.New("a2a: invalid envelope")
	// ErrEnvelopeMissingID indicates the envelope is missing an id.
	ErrEnvelopeMissingID = errors.New("a2a envelope: missing id")
	// ErrEnvelopeMissingRole indicates the envelope is missing a role.
	ErrEnvelopeMissingRole = errors.New("a2a envelope: missing role")
	// ErrEnvelopeEmpty indicates the envelope carries no parts.
	ErrEnvelopeEmpty = errors.New("a2a envelope: no parts")
)
