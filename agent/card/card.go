package card

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validation errors.
var (
	// ErrMissingName indicates the capability card is missing a name.
	ErrMissingName = errors.New("card: missing name")
	// ErrMissingDescription indicates the capability card is missing a description.
	ErrMissingDescription = errors.New("card: missing description")
	// ErrMissingURL indicates the capability card is missing a url.
	ErrMissingURL = errors.New("card: missing url")
	// ErrMalformedPayload indicates the card payload could not be decoded.
	ErrMalformedPayload = errors.New("card: malformed payload")
)

// Card is a capability card: the immutable description of one agent.
// URL is the sole identity key and always carries exactly one trailing
// slash. Skills is a deduplicated, sorted set of capability tags.
type Card struct {
	URL         string   `json:"url"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
}

// Skill is one advertised skill in the wire payload. The substrate
// only consumes the tags; id/name/description ride along for humans.
type Skill struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags"`
}

// Payload is the wire shape served at the well-known card endpoint and
// consumed by the resolver. Extra fields are tolerated and ignored.
type Payload struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	URL         string  `json:"url"`
	Version     string  `json:"version,omitempty"`
	Skills      []Skill `json:"skills,omitempty"`
}

// NormalizeURL collapses any run of trailing slashes to exactly one.
// It is idempotent. Empty input stays empty; validation is the
// caller's job.
func NormalizeURL(u string) string {
	if u == "" {
		return ""
	}
	return strings.TrimRight(u, "/") + "/"
}

// New builds a card from raw parts, normalizing the url and
// deduplicating skills.
func New(url, name, description string, skills []string) *Card {
	return &Card{
		URL:         NormalizeURL(url),
		Name:        name,
		Description: description,
		Skills:      DedupeTags(skills),
	}
}

// Decode parses a wire payload into a card. The stored identity is the
// normalized request url, not whatever url the payload declares; a
// card is keyed by where it was actually fetched from. All skill tags
// across all listed skills are flattened into one set. Decode is
// all-or-nothing: any failure returns a nil card.
func Decode(data []byte, requestURL string) (*Card, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	tags := make([]string, 0, len(p.Skills))
	for _, s := range p.Skills {
		tags = append(tags, s.Tags...)
	}

	c := &Card{
		URL:         NormalizeURL(requestURL),
		Name:        p.Name,
		Description: p.Description,
		Skills:      DedupeTags(tags),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the fields the substrate requires.
func (c *Card) Validate() error {
	if c.URL == "" {
		return ErrMissingURL
	}
	if c.Name == "" {
		return ErrMissingName
	}
	if c.Description == "" {
		return ErrMissingDescription
	}
	return nil
}

// HasSkill reports whether the card advertises tag. Matching is exact
// and case-sensitive.
func (c *Card) HasSkill(tag string) bool {
	for _, s := range c.Skills {
		if s == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Registry reads hand out clones so no
// caller can reach into shared state.
func (c *Card) Clone() *Card {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Skills = append([]string(nil), c.Skills...)
	return &cp
}

// DedupeTags returns the sorted set of non-empty tags.
func DedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
