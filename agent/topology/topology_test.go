package topology

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/BaSui01/agentlink/agent/card"
)

// fakeDirectory serves a fixed card set in slice order.
type fakeDirectory struct {
	cards []*card.Card
	err   error
}

func (d *fakeDirectory) Agents(ctx context.Context) ([]*card.Card, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := make([]*card.Card, 0, len(d.cards))
	for _, c := range d.cards {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (d *fakeDirectory) AgentsBySkill(ctx context.Context, tag string) ([]*card.Card, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := make([]*card.Card, 0)
	for _, c := range d.cards {
		if c.HasSkill(tag) {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (d *fakeDirectory) AgentURLs(ctx context.Context) ([]string, error) {
	if d.err != nil {
		return nil, d.err
	}
	urls := make([]string, 0, len(d.cards))
	for _, c := range d.cards {
		urls = append(urls, c.URL)
	}
	return urls, nil
}

// recordedCall is one invocation seen by fakeCaller.
type recordedCall struct {
	URL   string
	Agent string
	Input string
}

// fakeCaller records invocations and answers from a reply table keyed
// by agent name. Unknown agents fail.
type fakeCaller struct {
	mu      sync.Mutex
	replies map[string]string
	calls   []recordedCall
}

func newFakeCaller(replies map[string]string) *fakeCaller {
	if replies == nil {
		replies = make(map[string]string)
	}
	return &fakeCaller{replies: replies}
}

func (f *fakeCaller) Invoke(ctx context.Context, c *card.Card, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, recordedCall{URL: c.URL, Agent: c.Name, Input: text})
	reply, ok := f.replies[c.Name]
	if !ok {
		return "", errors.New("fake: unreachable agent " + c.Name)
	}
	return reply, nil
}

func (f *fakeCaller) InvokeText(ctx context.Context, c *card.Card, text string) string {
	out, err := f.Invoke(ctx, c, text)
	if err != nil {
		return fmt.Sprintf("Error calling %s: %v", c.Name, err)
	}
	return out
}

func (f *fakeCaller) recorded() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

// fakeResolver serves cards for the chain fallback scan.
type fakeResolver struct {
	mu    sync.Mutex
	cards map[string]*card.Card
	calls int
}

func newFakeResolver(cards ...*card.Card) *fakeResolver {
	m := make(map[string]*card.Card, len(cards))
	for _, c := range cards {
		m[c.URL] = c
	}
	return &fakeResolver{cards: m}
}

func (r *fakeResolver) Resolve(ctx context.Context, url string) (*card.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	c, ok := r.cards[card.NormalizeURL(url)]
	if !ok {
		return nil, errors.New("fake resolver: no card for " + url)
	}
	return c.Clone(), nil
}

func (r *fakeResolver) ResolveCached(ctx context.Context, url string) (*card.Card, error) {
	return r.Resolve(ctx, url)
}

func topoCard(url, name string, skills ...string) *card.Card {
	return card.New(url, name, name+" agent", skills)
}

// echoRole is an Executor returning a fixed reply, optionally failing.
type echoRole struct {
	reply string
	err   error
}

func (e *echoRole) Execute(ctx context.Context, text string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return e.reply, nil
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
