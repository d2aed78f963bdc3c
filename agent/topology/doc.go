// Package topology implements the three coordination strategies built
// on the registry and the invocation client: a centralized controller
// that delegates per-turn routing to an external decision function, a
// hub-and-spoke orchestrator running a fixed skill-tagged pipeline,
// and a peer-chain node behavior that lets any agent discover and
// invoke the next agent in a workflow directly.
//
// All three drivers take a discovery.Directory (in-process registry or
// remote directory client) and an a2a.RemoteCaller. Invocation
// failures never abort a run: they surface as visible error text inside
// the run's output so downstream decision-makers can adapt.
package topology
