// Package deps probes the execution environment for the external
// executables the pipeline can use: the interchangeable extraction tools
// (yt-dlp, then youtube-dl) plus the encoder and media probe.
package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"audiopress/internal/services/runner"
)

// Requirement defines an external dependency audiopress relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Version     string
	Detail      string
}

// ExtractorTools lists the interchangeable extraction executables in
// preference order. First available wins.
func ExtractorTools() []Requirement {
	return []Requirement{
		{Name: "yt-dlp", Command: "yt-dlp", Description: "Primary external extraction tool", Optional: true},
		{Name: "youtube-dl", Command: "youtube-dl", Description: "Legacy external extraction tool", Optional: true},
	}
}

// CheckBinaries evaluates the provided requirements by PATH lookup only.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// ProbeBinaries invokes each requirement with --version under the given
// timeout. A probe that errors or times out marks the tool unavailable.
func ProbeBinaries(ctx context.Context, run runner.Runner, requirements []Requirement, timeout time.Duration) []Status {
	if run == nil {
		run = runner.New()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		result, err := run.Run(ctx, runner.Command{Binary: cmd, Args: []string{"--version"}, Timeout: timeout})
		if err != nil {
			status.Detail = fmt.Sprintf("version probe failed: %v", err)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Version = firstLine(result.Stdout)
		results = append(results, status)
	}
	return results
}

func firstLine(output []byte) string {
	text := strings.TrimSpace(string(output))
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
