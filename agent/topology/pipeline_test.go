package topology

import (
	"context"
	"errors"
	"testing"

	"github.com/BaSui01/agentlink/agent/card"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contentStages() []Stage {
	return []Stage{
		{Name: "research", Skill: "research"},
		{Name: "writing", Skill: "writing", Instruction: "Write a guide from the research."},
		{Name: "security", Skill: "security", Instruction: "Scan for secrets."},
	}
}

func TestPipeline_AllStagesComplete(t *testing.T) {
	dir := &fakeDirectory{cards: []*card.Card{
		topoCard("http://r:1", "researcher", "research"),
		topoCard("http://w:2", "writer", "writing"),
		topoCard("http://s:3", "scanner", "security"),
	}}
	caller := newFakeCaller(map[string]string{
		"researcher": "the findings",
		"writer":     "the guide",
		"scanner":    "no secrets found",
	})

	p := NewPipeline(contentStages(), dir, caller, nil)
	report := p.Run(context.Background(), "explain mutexes")

	assert.Equal(t, OutcomeCompleted, report.Outcome)
	require.Len(t, report.Stages, 3)
	assert.Equal(t, "researcher", report.Stages[0].Agent)
	assert.Equal(t, "writer", report.Stages[1].Agent)
	assert.Equal(t, "scanner", report.Stages[2].Agent)

	// Strictly sequential dispatch order.
	calls := caller.recorded()
	require.Len(t, calls, 3)
	assert.Equal(t, "researcher", calls[0].Agent)
	assert.Equal(t, "writer", calls[1].Agent)
	assert.Equal(t, "scanner", calls[2].Agent)

	// First stage gets only the task; later stages embed the previous
	// stage's full output.
	assert.Equal(t, "explain mutexes", calls[0].Input)
	assert.True(t, containsAll(calls[1].Input, "Write a guide", "the findings"))
	assert.True(t, containsAll(calls[2].Input, "Scan for secrets", "the guide"))
	assert.NotContains(t, calls[2].Input, "the findings")

	assert.True(t, containsAll(report.Report, "the findings", "the guide", "no secrets found"))
}

func TestPipeline_ShortCircuitsOnMissingSkill(t *testing.T) {
	// No agent advertises "security": stages 1-2 run, stage 3 is
	// skipped with a note, and the partial report is still usable.
	dir := &fakeDirectory{cards: []*card.Card{
		topoCard("http://r:1", "researcher", "research"),
		topoCard("http://w:2", "writer", "writing"),
	}}
	caller := newFakeCaller(map[string]string{
		"researcher": "the findings",
		"writer":     "the guide",
	})

	p := NewPipeline(contentStages(), dir, caller, nil)
	report := p.Run(context.Background(), "explain mutexes")

	assert.Equal(t, OutcomeShortCircuited, report.Outcome)
	require.Len(t, report.Stages, 3)
	assert.False(t, report.Stages[0].Skipped)
	assert.False(t, report.Stages[1].Skipped)
	assert.True(t, report.Stages[2].Skipped)
	assert.Contains(t, report.Stages[2].Note, `no agent with skill "security"`)

	assert.True(t, containsAll(report.Report, "the findings", "the guide", `no agent with skill "security"`))
	assert.Len(t, caller.recorded(), 2)
}

func TestPipeline_TieBreakIsRegistrationOrder(t *testing.T) {
	dir := &fakeDirectory{cards: []*card.Card{
		topoCard("http://r1:1", "first-researcher", "research"),
		topoCard("http://r2:2", "second-researcher", "research"),
	}}
	caller := newFakeCaller(map[string]string{"first-researcher": "ok"})

	p := NewPipeline([]Stage{{Name: "research", Skill: "research"}}, dir, caller, nil)
	report := p.Run(context.Background(), "task")

	assert.Equal(t, OutcomeCompleted, report.Outcome)
	require.Len(t, caller.recorded(), 1)
	assert.Equal(t, "first-researcher", caller.recorded()[0].Agent)
}

func TestPipeline_InvocationFailureFlowsDownstream(t *testing.T) {
	// A failed stage renders as error text and the pipeline continues:
	// the next stage sees the failure in its input and can adapt.
	dir := &fakeDirectory{cards: []*card.Card{
		topoCard("http://r:1", "researcher", "research"),
		topoCard("http://w:2", "writer", "writing"),
	}}
	caller := newFakeCaller(map[string]string{"writer": "did my best"})

	p := NewPipeline(contentStages()[:2], dir, caller, nil)
	report := p.Run(context.Background(), "task")

	assert.Equal(t, OutcomeCompleted, report.Outcome)
	require.Len(t, report.Stages, 2)
	assert.Contains(t, report.Stages[0].Output, "Error calling researcher")

	calls := caller.recorded()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1].Input, "Error calling researcher")
}

func TestPipeline_DirectoryErrorSkipsWithNote(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("directory down")}
	p := NewPipeline(contentStages(), dir, newFakeCaller(nil), nil)

	report := p.Run(context.Background(), "task")

	assert.Equal(t, OutcomeShortCircuited, report.Outcome)
	require.Len(t, report.Stages, 1)
	assert.True(t, report.Stages[0].Skipped)
	assert.Contains(t, report.Stages[0].Note, "directory lookup")
}

func TestPipeline_NoStages(t *testing.T) {
	p := NewPipeline(nil, &fakeDirectory{}, newFakeCaller(nil), nil)
	report := p.Run(context.Background(), "task")

	assert.Equal(t, OutcomeCompleted, report.Outcome)
	assert.Empty(t, report.Stages)
	assert.Contains(t, report.Report, "task")
}

func TestDefaultStages(t *testing.T) {
	stages := DefaultStages()
	require.Len(t, stages, 3)
	assert.Equal(t, "research", stages[0].Skill)
	assert.Equal(t, "writing", stages[1].Skill)
	assert.Equal(t, "security", stages[2].Skill)
}
