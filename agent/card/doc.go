// Package card defines the capability card: the minimal description of
// one agent (name, description, skill tags, url) that the registry
// stores and the resolver fetches.
//
// A card's URL is its sole identity and is normalized to exactly one
// trailing slash. Skill tags are flattened from the wire payload's
// skills[].tags and kept as a deduplicated, sorted set.
package card
