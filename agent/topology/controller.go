package topology

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/agentlink/agent/a2a"
	"github.com/BaSui01/agentlink/agent/card"
	"github.com/BaSui01/agentlink/agent/discovery"
	"go.uber.org/zap"
)

// ControllerState is one state of the controller loop.
type ControllerState string

const (
	// StateAwaitingDecision means the controller is waiting for the
	// decision function to pick a target or terminate.
	StateAwaitingDecision ControllerState = "AWAITING_DECISION"
	// StateDispatching means the controller is invoking the chosen
	// target.
	StateDispatching ControllerState = "DISPATCHING"
	// StateDone is terminal.
	StateDone ControllerState = "DONE"
)

// Turn is one completed controller turn: which target ran and what it
// produced. The turn trace feeds the next decision-function input.
type Turn struct {
	Index  int    `json:"turn_index"`
	Target string `json:"target"`
	Output string `json:"output_text"`
}

// Decision is what the decision function returns each turn: either a
// target to dispatch to, or termination. An empty TargetURL without
// Terminate means "no target selected".
type Decision struct {
	// TargetURL identifies the candidate to invoke, matched against
	// the candidate set by normalized url or by name.
	TargetURL string
	// Message is the text to send to the target. Empty falls back to
	// the original task.
	Message string
	// Terminate ends the run. Final, if set, becomes the report's
	// final text.
	Terminate bool
	Final     string
}

// DecisionInput is everything the decision function sees each turn:
// the full candidate set, the trace so far, and a rendered prompt that
// fits the configured token budget.
type DecisionInput struct {
	Task       string
	Candidates []*card.Card
	Trace      []Turn
	Prompt     string
}

// DecisionFunc decides each turn's routing. The substrate treats it as
// opaque; in production it wraps a model call, in tests a table.
// Choosing among candidates is entirely its job.
type DecisionFunc func(ctx context.Context, in DecisionInput) (Decision, error)

// ControllerConfig holds configuration for the centralized controller.
type ControllerConfig struct {
	// MaxTurns bounds the loop. Exhausting it is a distinct terminal
	// outcome from an explicit termination signal.
	MaxTurns int
	// TerminationToken, when found in a decision's Final or a turn
	// output by TokenDecision wrappers, signals completion. Carried in
	// the rendered prompt so model-backed decision functions know how
	// to stop.
	TerminationToken string
	// PromptTokenBudget trims the oldest trace turns out of the
	// rendered prompt when the count exceeds it. Zero disables
	// trimming.
	PromptTokenBudget int
}

// DefaultControllerConfig returns a ControllerConfig with sensible
// defaults.
func DefaultControllerConfig() *ControllerConfig {
	return &ControllerConfig{
		MaxTurns:         5,
		TerminationToken: "TASK_COMPLETE",
	}
}

// ControllerReport is the outcome of one controller run. Outcome
// distinguishes the terminal conditions: explicit signal, turn budget
// exhausted, or stall.
type ControllerReport struct {
	Task    string          `json:"task"`
	Outcome Outcome         `json:"outcome"`
	State   ControllerState `json:"state"`
	Turns   []Turn          `json:"turns"`
	Final   string          `json:"final"`
}

// Controller is the centralized decision-maker topology: it
// materializes the full candidate set once, then loops presenting
// candidates plus trace to the decision function and dispatching to
// whichever target it picks, until termination or exhaustion.
type Controller struct {
	config    *ControllerConfig
	directory discovery.Directory
	caller    a2a.RemoteCaller
	decide    DecisionFunc
	counter   TokenCounter
	logger    *zap.Logger
}

// NewController creates a Controller. The token counter may be nil; a
// character estimate is used instead.
func NewController(config *ControllerConfig, dir discovery.Directory, caller a2a.RemoteCaller, decide DecisionFunc, counter TokenCounter, logger *zap.Logger) *Controller {
	if config == nil {
		config = DefaultControllerConfig()
	}
	if config.MaxTurns <= 0 {
		config.MaxTurns = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		config:    config,
		directory: dir,
		caller:    caller,
		decide:    decide,
		counter:   counter,
		logger:    logger.With(zap.String("component", "controller")),
	}
}

// Run executes the controller loop for task. The candidate set is
// materialized once, up front; agents registered mid-run are not
// picked up. Invocation failures surface as error text in the turn
// trace, never as a returned error. Run itself errors only when the
// directory or the decision function fails.
func (c *Controller) Run(ctx context.Context, task string) (*ControllerReport, error) {
	candidates, err := c.directory.Agents(ctx)
	if err != nil {
		return nil, fmt.Errorf("controller: listing candidates: %w", err)
	}

	report := &ControllerReport{
		Task:  task,
		State: StateAwaitingDecision,
		Turns: make([]Turn, 0, c.config.MaxTurns),
	}

	c.logger.Info("controller run starting",
		zap.Int("candidates", len(candidates)),
		zap.Int("max_turns", c.config.MaxTurns),
	)

	for turn := 0; turn < c.config.MaxTurns; turn++ {
		in := DecisionInput{
			Task:       task,
			Candidates: candidates,
			Trace:      report.Turns,
			Prompt:     c.buildPrompt(task, candidates, report.Turns),
		}

		d, err := c.decide(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("controller: decision on turn %d: %w", turn, err)
		}

		if d.Terminate {
			report.State = StateDone
			report.Outcome = OutcomeCompleted
			report.Final = d.Final
			c.logger.Info("controller run completed by signal", zap.Int("turns", len(report.Turns)))
			return report, nil
		}

		if d.TargetURL == "" {
			// Implicit completion guard: a non-first turn with no
			// target would otherwise stall forever.
			if turn > 0 {
				report.State = StateDone
				report.Outcome = OutcomeStalled
				c.logger.Info("controller run stalled", zap.Int("turn", turn))
				return report, nil
			}
			continue
		}

		target := pickCandidate(candidates, d.TargetURL)
		message := d.Message
		if message == "" {
			message = task
		}

		report.State = StateDispatching
		var output string
		if target == nil {
			output = fmt.Sprintf("Error calling %s: not in the candidate set", d.TargetURL)
			c.logger.Warn("decision picked unknown target", zap.String("target", d.TargetURL))
		} else {
			start := time.Now()
			output = c.caller.InvokeText(ctx, target, message)
			c.logger.Info("turn dispatched",
				zap.Int("turn", turn),
				zap.String("target", target.Name),
				zap.Duration("duration", time.Since(start)),
			)
		}

		report.Turns = append(report.Turns, Turn{
			Index:  turn,
			Target: targetLabel(target, d.TargetURL),
			Output: output,
		})
		report.Final = output
		report.State = StateAwaitingDecision
	}

	report.State = StateDone
	report.Outcome = OutcomeExhausted
	c.logger.Info("controller run exhausted turn budget", zap.Int("turns", len(report.Turns)))
	return report, nil
}

// buildPrompt renders the decision-function prompt: task, candidate
// roster, trace so far, and the termination instruction. When a token
// budget is configured the oldest turns are dropped first until the
// prompt fits.
func (c *Controller) buildPrompt(task string, candidates []*card.Card, trace []Turn) string {
	for drop := 0; ; drop++ {
		prompt := renderPrompt(task, candidates, trace[drop:], c.config.TerminationToken, drop)
		if c.config.PromptTokenBudget <= 0 || drop >= len(trace) {
			return prompt
		}
		if countTokens(c.counter, prompt) <= c.config.PromptTokenBudget {
			return prompt
		}
	}
}

func renderPrompt(task string, candidates []*card.Card, trace []Turn, token string, dropped int) string {
	var b strings.Builder
	b.WriteString("You coordinate a task by delegating to the agents below.\n\nTASK:\n")
	b.WriteString(task)
	b.WriteString("\n\nAVAILABLE AGENTS:\n")
	if len(candidates) == 0 {
		b.WriteString("(none registered)\n")
	}
	for _, cd := range candidates {
		fmt.Fprintf(&b, "- %s (%s): %s\n", cd.Name, cd.URL, cd.Description)
	}
	if len(trace) > 0 || dropped > 0 {
		b.WriteString("\nPROGRESS SO FAR:\n")
		if dropped > 0 {
			fmt.Fprintf(&b, "(%d earlier turn(s) omitted)\n", dropped)
		}
		for _, t := range trace {
			fmt.Fprintf(&b, "- Turn %d: %s responded:\n%s\n", t.Index+1, t.Target, t.Output)
		}
	}
	b.WriteString("\nPick the next agent to call, or say ")
	b.WriteString(token)
	b.WriteString(" when every step is finished.")
	return b.String()
}

// pickCandidate matches the decision's target against the candidate
// set by normalized url first, then by name.
func pickCandidate(candidates []*card.Card, target string) *card.Card {
	normalized := card.NormalizeURL(target)
	for _, c := range candidates {
		if c.URL == normalized {
			return c
		}
	}
	for _, c := range candidates {
		if c.Name == target {
			return c
		}
	}
	return nil
}

func targetLabel(c *card.Card, fallback string) string {
	if c == nil {
		return fallback
	}
	if c.Name != "" {
		return c.Name
	}
	return c.URL
}
