package topology

// Outcome classifies how a run ended. Reports carry it so callers can
// tell the terminal conditions apart.
type Outcome string

const (
	// OutcomeCompleted means the run finished by explicit signal
	// (controller) or with every stage executed (pipeline).
	OutcomeCompleted Outcome = "completed"
	// OutcomeExhausted means the controller spent its turn budget
	// without a completion signal.
	OutcomeExhausted Outcome = "exhausted"
	// OutcomeStalled means the decision function selected no target on
	// a non-first turn; the controller reads that as implicit
	// completion.
	OutcomeStalled Outcome = "stalled"
	// OutcomeShortCircuited means a pipeline stage found no agent with
	// its skill and the remaining stages were skipped.
	OutcomeShortCircuited Outcome = "short_circuited"
)

// TokenCounter counts text tokens for the controller's prompt budget.
// internal/tokenizer provides the tiktoken-backed implementation; a
// nil counter falls back to a character estimate.
type TokenCounter interface {
	Count(text string) int
}

// estimateTokens approximates a token count at four characters per
// token, the usual ballpark for English prose.
func estimateTokens(text string) int {
	return len(text) / 4
}

func countTokens(counter TokenCounter, text string) int {
	if counter == nil {
		return estimateTokens(text)
	}
	return counter.Count(text)
}
