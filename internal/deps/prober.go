package deps

import (
	"context"
	"sync"
	"time"

	"audiopress/internal/services/runner"
)

// ToolHandle identifies the external extraction tool selected for a job.
type ToolHandle struct {
	Name    string
	Command string
	Version string
}

// Prober performs tool discovery once per process and caches the report.
// The cache is safe for concurrent readers; constructing a fresh Prober
// forces a re-probe.
type Prober struct {
	run     runner.Runner
	tools   []Requirement
	timeout time.Duration

	once   sync.Once
	report []Status
}

// NewProber builds a Prober over the given requirements. A nil runner
// selects the production executor; empty requirements default to
// ExtractorTools.
func NewProber(run runner.Runner, tools []Requirement, timeout time.Duration) *Prober {
	if run == nil {
		run = runner.New()
	}
	if len(tools) == 0 {
		tools = ExtractorTools()
	}
	return &Prober{run: run, tools: tools, timeout: timeout}
}

// Report returns the availability of every known tool, probing on first
// use.
func (p *Prober) Report(ctx context.Context) []Status {
	p.once.Do(func() {
		p.report = ProbeBinaries(ctx, p.run, p.tools, p.timeout)
	})
	out := make([]Status, len(p.report))
	copy(out, p.report)
	return out
}

// First returns the first available tool in preference order, or false
// when none is installed.
func (p *Prober) First(ctx context.Context) (ToolHandle, bool) {
	for _, status := range p.Report(ctx) {
		if status.Available {
			return ToolHandle{Name: status.Name, Command: status.Command, Version: status.Version}, true
		}
	}
	return ToolHandle{}, false
}
