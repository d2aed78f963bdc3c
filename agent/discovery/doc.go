// Package discovery implements the agent directory: a process-wide
// registry mapping normalized agent urls to capability cards, the HTTP
// service that exposes it, and the client agents use to reach it.
//
// Registration is caller-side fetch: the registry resolves the card
// from the submitted url itself, always fresh, and stores it keyed by
// the normalized url (last write wins, registration order preserved).
// Reads are point-in-time snapshots of deep-copied cards. Registry
// changes fan out to subscribers and to WebSocket consumers of the
// service's /events endpoint.
//
// The Directory interface is the read contract shared by the
// in-process Registry and the HTTP DirectoryClient; topology drivers
// accept either.
package discovery
