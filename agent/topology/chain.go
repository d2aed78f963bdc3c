package topology

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/agentlink/agent/a2a"
	"github.com/BaSui01/agentlink/agent/card"
	"github.com/BaSui01/agentlink/agent/discovery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ChainConfig holds configuration for a peer-chain node.
type ChainConfig struct {
	// NodeName labels this node in the combined report.
	NodeName string
	// NextSkill is the skill tag of the downstream agent to delegate
	// to after own work completes. Empty makes the node terminal.
	NextSkill string
	// MaxHops bounds chain depth. The count travels hop-to-hop on the
	// invocation header; a node at the budget returns its own output
	// plus a note instead of delegating. This deviates from the
	// unbounded source behavior as a guard against delegation cycles.
	MaxHops int
	// ScanConcurrency bounds the fallback card scan. Zero means 4.
	ScanConcurrency int
}

// DefaultChainConfig returns a ChainConfig with sensible defaults.
func DefaultChainConfig() *ChainConfig {
	return &ChainConfig{
		MaxHops:         8,
		ScanConcurrency: 4,
	}
}

// ChainNode composes peer-chain behavior onto any agent role: after
// the role's own work, the node looks up one agent offering NextSkill
// and invokes it directly, embedding its own output in the forwarded
// request, then returns the combined result to its own caller.
//
// ChainNode implements a2a.Executor, so it slots straight behind an
// a2a.AgentServer. Outbound calling is injected through the
// RemoteCaller rather than inherited.
type ChainNode struct {
	config    *ChainConfig
	role      a2a.Executor
	directory discovery.Directory
	resolver  a2a.CardResolver
	caller    a2a.RemoteCaller
	logger    *zap.Logger
}

// NewChainNode composes chain behavior around role. The resolver is
// used only by the fallback scan and may be nil to disable it.
func NewChainNode(config *ChainConfig, role a2a.Executor, dir discovery.Directory, resolver a2a.CardResolver, caller a2a.RemoteCaller, logger *zap.Logger) *ChainNode {
	if config == nil {
		config = DefaultChainConfig()
	}
	if config.MaxHops <= 0 {
		config.MaxHops = 8
	}
	if config.ScanConcurrency <= 0 {
		config.ScanConcurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainNode{
		config:    config,
		role:      role,
		directory: dir,
		resolver:  resolver,
		caller:    caller,
		logger: logger.With(
			zap.String("component", "chain_node"),
			zap.String("node", config.NodeName),
		),
	}
}

// Execute does the node's own work, then delegates to the next-skill
// agent when one exists. Finding no downstream agent is a normal
// terminal state: the node returns only its own output. A failed
// downstream invocation is likewise embedded as error text in the
// combined result, never raised.
func (n *ChainNode) Execute(ctx context.Context, text string) (string, error) {
	own, err := n.role.Execute(ctx, text)
	if err != nil {
		return "", err
	}

	if n.config.NextSkill == "" {
		return own, nil
	}

	hops := a2a.HopsFromContext(ctx)
	if hops+1 > n.config.MaxHops {
		n.logger.Warn("hop budget exhausted, not delegating",
			zap.Int("hops", hops),
			zap.String("next_skill", n.config.NextSkill),
		)
		return own + fmt.Sprintf("\n\n(delegation to skill %q stopped: hop budget of %d exhausted)",
			n.config.NextSkill, n.config.MaxHops), nil
	}

	target := n.findNext(ctx)
	if target == nil {
		n.logger.Info("no downstream agent, chain terminates here",
			zap.String("next_skill", n.config.NextSkill),
		)
		return own, nil
	}

	n.logger.Info("delegating to downstream agent",
		zap.String("agent", target.Name),
		zap.Int("hop", hops+1),
	)

	forward := fmt.Sprintf("%s\n\nOUTPUT FROM %s:\n---\n%s\n---", text, n.nodeLabel(), own)
	downstream := n.caller.InvokeText(a2a.WithHops(ctx, hops+1), target, forward)

	return fmt.Sprintf("## %s -> %s (chain)\n\n### %s output:\n%s\n\n### Downstream output:\n%s",
		n.nodeLabel(), target.Name, n.nodeLabel(), own, downstream), nil
}

// findNext locates one downstream agent: first via the skill index,
// then — because the indexed view may be stale relative to a card not
// yet cached locally — by scanning every registered url and resolving
// cards individually. Registration order decides ties. Nil means no
// agent offers the skill.
func (n *ChainNode) findNext(ctx context.Context) *card.Card {
	matches, err := n.directory.AgentsBySkill(ctx, n.config.NextSkill)
	if err != nil {
		n.logger.Warn("skill lookup failed, falling back to scan", zap.Error(err))
	} else if len(matches) > 0 {
		return matches[0]
	}

	return n.scanForSkill(ctx)
}

// scanForSkill resolves every registered url's card (cached resolves,
// bounded concurrency) and returns the first, in registration order,
// advertising the next skill.
func (n *ChainNode) scanForSkill(ctx context.Context) *card.Card {
	if n.resolver == nil {
		return nil
	}
	urls, err := n.directory.AgentURLs(ctx)
	if err != nil {
		n.logger.Warn("url listing failed during fallback scan", zap.Error(err))
		return nil
	}
	if len(urls) == 0 {
		return nil
	}

	cards := make([]*card.Card, len(urls))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.config.ScanConcurrency)
	for i, u := range urls {
		g.Go(func() error {
			c, err := n.resolver.ResolveCached(gctx, u)
			if err != nil {
				// Unresolvable peers are skipped, not fatal to the scan.
				n.logger.Debug("fallback scan skipping peer",
					zap.String("url", u),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			cards[i] = c
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, c := range cards {
		if c != nil && c.HasSkill(n.config.NextSkill) {
			return c
		}
	}
	return nil
}

func (n *ChainNode) nodeLabel() string {
	if n.config.NodeName != "" {
		return n.config.NodeName
	}
	return "chain node"
}

// Ensure ChainNode implements Executor.
var _ a2a.Executor = (*ChainNode)(nil)
