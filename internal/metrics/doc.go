// Package metrics provides the substrate's Prometheus metric set:
// registry service HTTP traffic, directory mutations, capability card
// resolution and caching, remote invocations, and topology runs.
//
// Collector registers everything through promauto against an
// injectable registerer, so tests can use an isolated registry while
// the process default serves /metrics.
package metrics
