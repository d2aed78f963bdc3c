// Package config defines the AgentLink configuration surface and its
// loader. Precedence is defaults → YAML file → AGENTLINK_* environment
// variables; the loader validates the result before handing it out.
package config
