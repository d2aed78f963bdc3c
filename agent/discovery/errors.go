package discovery

import "errors"

// Registry errors.
var (
	// ErrAgentNotFound indicates the url is not registered.
	ErrAgentNotFound = errors.New("discovery: agent not found")
	// ErrRegistrationFailed indicates the capability card could not be
	// fetched during registration. The registry mutates nothing in
	// that case.
	ErrRegistrationFailed = errors.New("discovery: registration failed")
	// ErrEmptyURL indicates a register/unregister call with no url.
	ErrEmptyURL = errors.New("discovery: empty url")
)

// Directory client errors.
var (
	// ErrDirectoryUnavailable indicates the registry service could not
	// be reached or returned an unusable response.
	ErrDirectoryUnavailable = errors.New("discovery: directory service unavailable")
)
