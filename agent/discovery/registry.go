package discovery

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/BaSui01/agentlink/agent/a2a"
	"github.com/BaSui01/agentlink/agent/card"
	"github.com/BaSui01/agentlink/types"
	"go.uber.org/zap"
)

// Directory is the read side of the agent directory. It is implemented
// by the in-process Registry and by DirectoryClient, so topology
// drivers work the same against a local registry or a remote service.
type Directory interface {
	// Agents returns all registered cards in registration order.
	Agents(ctx context.Context) ([]*card.Card, error)
	// AgentsBySkill returns the cards advertising tag, in registration
	// order. Matching is exact and case-sensitive; no match yields an
	// empty slice, never an error.
	AgentsBySkill(ctx context.Context, tag string) ([]*card.Card, error)
	// AgentURLs returns registered urls in registration order.
	AgentURLs(ctx context.Context) ([]string, error)
}

// Registry is the process-wide agent directory: normalized agent url →
// capability card. Registration fetches the target's card server-side
// via the resolver; entries live until unregistered or process exit.
//
// A single RWMutex guards the entries, the registration-order index,
// and the skill index. The card fetch happens outside the lock. Reads
// hand out deep copies, so no caller can reach shared state.
type Registry struct {
	mu         sync.RWMutex
	entries    map[string]*card.Card
	order      []string
	skillIndex map[string]map[string]struct{} // tag -> set of urls

	resolver a2a.CardResolver

	handlerMu sync.RWMutex
	handlers  map[string]EventHandler
	subSeq    uint64

	logger *zap.Logger
}

// NewRegistry creates an empty registry that resolves cards through
// resolver during registration.
func NewRegistry(resolver a2a.CardResolver, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		entries:    make(map[string]*card.Card),
		order:      make([]string, 0),
		skillIndex: make(map[string]map[string]struct{}),
		resolver:   resolver,
		handlers:   make(map[string]EventHandler),
		logger:     logger.With(zap.String("component", "registry")),
	}
}

// Register normalizes url, fetches the capability card from it (always
// fresh, never from a cache), and stores the card keyed by the
// normalized url. Registering an already-known url overwrites the
// entry but keeps its original position in registration order. On
// fetch failure nothing is mutated. Returns a copy of the stored card.
func (r *Registry) Register(ctx context.Context, url string) (*card.Card, error) {
	if url == "" {
		return nil, types.NewError(types.ErrRegistration, "url must not be empty").
			WithHTTPStatus(http.StatusBadRequest).
			WithCause(ErrEmptyURL)
	}
	normalized := card.NormalizeURL(url)

	// Network fetch outside the lock; only the map mutation below is
	// locked.
	c, err := r.resolver.Resolve(ctx, normalized)
	if err != nil {
		return nil, types.NewError(types.ErrRegistration,
			fmt.Sprintf("could not fetch capability card from %s", normalized)).
			WithHTTPStatus(http.StatusBadRequest).
			WithAgent(normalized).
			WithCause(fmt.Errorf("%w: %v", ErrRegistrationFailed, err))
	}

	r.mu.Lock()
	prev, replaced := r.entries[normalized]
	if replaced {
		r.dropSkills(normalized, prev)
	} else {
		r.order = append(r.order, normalized)
	}
	r.entries[normalized] = c
	r.addSkills(normalized, c)
	r.mu.Unlock()

	r.logger.Info("agent registered",
		zap.String("url", normalized),
		zap.String("agent", c.Name),
		zap.Strings("skills", c.Skills),
		zap.Bool("replaced", replaced),
	)

	r.emit(&Event{
		Type:      EventRegistered,
		URL:       normalized,
		Agent:     c.Name,
		Skills:    c.Skills,
		Timestamp: time.Now(),
	})

	return c.Clone(), nil
}

// Unregister removes the entry for the normalized url and returns the
// removed card. Unknown urls yield a not-found error.
func (r *Registry) Unregister(ctx context.Context, url string) (*card.Card, error) {
	normalized := card.NormalizeURL(url)

	r.mu.Lock()
	c, exists := r.entries[normalized]
	if !exists {
		r.mu.Unlock()
		return nil, types.NewError(types.ErrNotFound,
			fmt.Sprintf("agent not found: %s", normalized)).
			WithHTTPStatus(http.StatusNotFound).
			WithAgent(normalized).
			WithCause(ErrAgentNotFound)
	}
	delete(r.entries, normalized)
	r.dropSkills(normalized, c)
	for i, u := range r.order {
		if u == normalized {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.logger.Info("agent unregistered",
		zap.String("url", normalized),
		zap.String("agent", c.Name),
	)

	r.emit(&Event{
		Type:      EventUnregistered,
		URL:       normalized,
		Agent:     c.Name,
		Timestamp: time.Now(),
	})

	return c, nil
}

// List returns a snapshot of all cards in registration order. An
// overwritten entry keeps its original position.
func (r *Registry) List(ctx context.Context) []*card.Card {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*card.Card, 0, len(r.order))
	for _, u := range r.order {
		if c, ok := r.entries[u]; ok {
			out = append(out, c.Clone())
		}
	}
	return out
}

// FindBySkill returns every card whose skill set contains tag, in the
// same order as List. Matching is exact and case-sensitive. No match
// is a normal outcome: an empty slice, never an error.
func (r *Registry) FindBySkill(ctx context.Context, tag string) []*card.Card {
	r.mu.RLock()
	defer r.mu.RUnlock()

	urls, ok := r.skillIndex[tag]
	if !ok {
		return []*card.Card{}
	}
	out := make([]*card.Card, 0, len(urls))
	for _, u := range r.order {
		if _, hit := urls[u]; !hit {
			continue
		}
		if c, ok := r.entries[u]; ok {
			out = append(out, c.Clone())
		}
	}
	return out
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Health is the directory health snapshot.
type Health struct {
	Status           string `json:"status"`
	RegisteredAgents int    `json:"registered_agents"`
}

// Health reports the registry health snapshot. It never fails.
func (r *Registry) Health() Health {
	return Health{Status: "healthy", RegisteredAgents: r.Count()}
}

// Agents adapts List to the Directory error shape, so in-process
// callers and HTTP directory clients are interchangeable.
func (r *Registry) Agents(ctx context.Context) ([]*card.Card, error) {
	return r.List(ctx), nil
}

// AgentsBySkill adapts FindBySkill to the Directory error shape.
func (r *Registry) AgentsBySkill(ctx context.Context, tag string) ([]*card.Card, error) {
	return r.FindBySkill(ctx, tag), nil
}

// AgentURLs returns the registered urls in registration order.
func (r *Registry) AgentURLs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...), nil
}

// Subscribe registers handler for registry change events and returns a
// subscription id for Unsubscribe.
func (r *Registry) Subscribe(handler EventHandler) string {
	r.handlerMu.Lock()
	defer r.handlerMu.Unlock()

	r.subSeq++
	id := fmt.Sprintf("sub-%d", r.subSeq)
	r.handlers[id] = handler
	return id
}

// Unsubscribe removes the subscription.
func (r *Registry) Unsubscribe(subscriptionID string) {
	r.handlerMu.Lock()
	defer r.handlerMu.Unlock()

	delete(r.handlers, subscriptionID)
}

// emit delivers event to all subscribers, each on its own goroutine.
func (r *Registry) emit(event *Event) {
	r.handlerMu.RLock()
	handlers := make([]EventHandler, 0, len(r.handlers))
	for _, h := range r.handlers {
		handlers = append(handlers, h)
	}
	r.handlerMu.RUnlock()

	for _, handler := range handlers {
		go handler(event)
	}
}

// addSkills indexes the card's tags. Caller holds mu.
func (r *Registry) addSkills(url string, c *card.Card) {
	for _, tag := range c.Skills {
		if r.skillIndex[tag] == nil {
			r.skillIndex[tag] = make(map[string]struct{})
		}
		r.skillIndex[tag][url] = struct{}{}
	}
}

// dropSkills removes the card's tags from the index. Caller holds mu.
func (r *Registry) dropSkills(url string, c *card.Card) {
	for _, tag := range c.Skills {
		if urls, ok := r.skillIndex[tag]; ok {
			delete(urls, url)
			if len(urls) == 0 {
				delete(r.skillIndex, tag)
			}
		}
	}
}

// Ensure Registry implements Directory.
var _ Directory = (*Registry)(nil)
