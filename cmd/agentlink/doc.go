// Command agentlink runs the agent registry service and supporting
// tooling.
//
// Usage:
//
//	agentlink serve                       start the registry service
//	agentlink serve --config config.yaml  with a config file
//	agentlink demo                        run a local hub-and-spoke demo
//	agentlink migrate up                  apply run-history migrations
//	agentlink health                      probe a running registry
//	agentlink version                     print build information
package main
