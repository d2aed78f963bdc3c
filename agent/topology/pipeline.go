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

// Stage is one pipeline stage: a name, the single skill tag its agent
// must advertise, and an instruction prefixed to the stage input.
type Stage struct {
	Name        string `json:"name" yaml:"name"`
	Skill       string `json:"skill" yaml:"skill"`
	Instruction string `json:"instruction,omitempty" yaml:"instruction,omitempty"`
}

// StageResult records one stage of a pipeline run. Skipped stages
// carry a note instead of output.
type StageResult struct {
	Index   int    `json:"stage_index"`
	Stage   string `json:"stage_name"`
	Skill   string `json:"skill_tag"`
	Agent   string `json:"agent_name,omitempty"`
	Output  string `json:"output_text,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
	Note    string `json:"note,omitempty"`
}

// PipelineReport is the outcome of one pipeline run: the per-stage
// trace plus the combined report text. Always usable, even when the
// pipeline short-circuited.
type PipelineReport struct {
	Task    string        `json:"task"`
	Outcome Outcome       `json:"outcome"`
	Stages  []StageResult `json:"stages"`
	Report  string        `json:"report"`
}

// Pipeline is the hub-and-spoke topology: a fixed ordered sequence of
// skill-tagged stages, each resolved to one agent through the
// directory and invoked with the previous stage's full output embedded
// in its input. All coordination flows through the hub; spokes never
// talk to each other.
type Pipeline struct {
	stages    []Stage
	directory discovery.Directory
	caller    a2a.RemoteCaller
	logger    *zap.Logger
}

// NewPipeline creates a Pipeline over the given stages.
func NewPipeline(stages []Stage, dir discovery.Directory, caller a2a.RemoteCaller, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		stages:    stages,
		directory: dir,
		caller:    caller,
		logger:    logger.With(zap.String("component", "pipeline")),
	}
}

// DefaultStages is the research → writing → security content pipeline
// the substrate ships as demo material. Stage instructions embed the
// previous stage's output as working context.
func DefaultStages() []Stage {
	return []Stage{
		{
			Name:  "research",
			Skill: "research",
		},
		{
			Name:        "writing",
			Skill:       "writing",
			Instruction: "Based on the following research findings, write a well-structured, reader-friendly guide.",
		},
		{
			Name:        "security",
			Skill:       "security",
			Instruction: "Scan the following content for exposed secrets, credentials, API keys, or sensitive data, and confirm whether it is safe to publish.",
		},
	}
}

// Run executes the pipeline for task, strictly sequentially: stage N+1
// never starts before stage N's invocation returns. A stage with no
// matching agent short-circuits the rest; the report then combines
// every completed stage plus an explanatory note. Run never fails —
// the caller always gets a usable (possibly partial) report.
func (p *Pipeline) Run(ctx context.Context, task string) *PipelineReport {
	report := &PipelineReport{
		Task:    task,
		Outcome: OutcomeCompleted,
		Stages:  make([]StageResult, 0, len(p.stages)),
	}

	p.logger.Info("pipeline starting", zap.Int("stages", len(p.stages)))

	previous := ""
	for i, stage := range p.stages {
		target, note := p.resolveStage(ctx, stage)
		if target == nil {
			report.Stages = append(report.Stages, StageResult{
				Index:   i,
				Stage:   stage.Name,
				Skill:   stage.Skill,
				Skipped: true,
				Note:    note,
			})
			report.Outcome = OutcomeShortCircuited
			p.logger.Warn("pipeline short-circuited",
				zap.Int("stage", i),
				zap.String("skill", stage.Skill),
			)
			break
		}

		input := stageInput(stage, task, previous, i)
		start := time.Now()
		output := p.caller.InvokeText(ctx, target, input)
		p.logger.Info("stage completed",
			zap.Int("stage", i),
			zap.String("agent", target.Name),
			zap.Duration("duration", time.Since(start)),
		)

		report.Stages = append(report.Stages, StageResult{
			Index:  i,
			Stage:  stage.Name,
			Skill:  stage.Skill,
			Agent:  target.Name,
			Output: output,
		})
		previous = output
	}

	report.Report = renderPipelineReport(report)
	return report
}

// resolveStage picks the stage's agent: first in registration order
// among the skill matches. A nil card plus a note means the stage must
// be skipped.
func (p *Pipeline) resolveStage(ctx context.Context, stage Stage) (*card.Card, string) {
	matches, err := p.directory.AgentsBySkill(ctx, stage.Skill)
	if err != nil {
		return nil, fmt.Sprintf("stage skipped: directory lookup for skill %q failed: %v", stage.Skill, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Sprintf("stage skipped: no agent with skill %q", stage.Skill)
	}
	return matches[0], ""
}

// stageInput builds the invocation text: the first stage receives the
// original task alone; every later stage gets its instruction plus the
// previous stage's full output as embedded context.
func stageInput(stage Stage, task, previous string, index int) string {
	if index == 0 || previous == "" {
		if stage.Instruction != "" {
			return stage.Instruction + "\n\n" + task
		}
		return task
	}

	instruction := stage.Instruction
	if instruction == "" {
		instruction = "Continue the task using the previous stage's output below."
	}
	return fmt.Sprintf("%s\n\nINPUT FROM PREVIOUS STAGE:\n---\n%s\n---", instruction, previous)
}

func renderPipelineReport(r *PipelineReport) string {
	var b strings.Builder
	b.WriteString("## Pipeline Report\n\nTask: ")
	b.WriteString(r.Task)
	b.WriteString("\n")
	for _, s := range r.Stages {
		fmt.Fprintf(&b, "\n---\n\n### Stage %d: %s (skill %q)\n", s.Index+1, s.Stage, s.Skill)
		if s.Skipped {
			b.WriteString(s.Note)
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, "Agent: %s\n\n%s\n", s.Agent, s.Output)
	}
	if r.Outcome == OutcomeShortCircuited {
		b.WriteString("\nRemaining stages were skipped.\n")
	}
	return b.String()
}
