/*
Package agent groups the substrate's agent-facing packages.

# Overview

AgentLink is a discovery-and-invocation substrate: agents advertise
what they can do, find each other, and call each other over HTTP,
without any topology baked into the core.

The subpackages layer as follows:

	┌─────────────────────────────────────────────────────────┐
	│                   agent/topology                        │
	│   controller · pipeline · chain (coordination shapes)   │
	├─────────────────────────────────────────────────────────┤
	│          agent/discovery                                │
	│   registry · registry service · directory client        │
	├─────────────────────────────────────────────────────────┤
	│          agent/a2a                                      │
	│   resolver · invocation client · agent server · cache   │
	├─────────────────────────────────────────────────────────┤
	│          agent/card                                     │
	│   capability cards and their wire payload               │
	└─────────────────────────────────────────────────────────┘

agent/card defines the capability card: name, description, url, and
flattened skill tags. agent/a2a moves cards and messages over the
wire: the resolver fetches cards from the well-known path, the client
sends invocation envelopes, the server hosts one agent behind both.
agent/discovery keeps the registry of live cards and serves it over
HTTP. agent/topology builds three coordination shapes on top of those
pieces; none of them is privileged, and new shapes need nothing beyond
the public surfaces.

Decision-making is out of scope throughout: the controller topology
accepts an opaque decision function, and executors are plain
functions. What sits behind them is the caller's business.
*/
package agent
