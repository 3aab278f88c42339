package tool

import (
	"context"
	"time"

	"github.com/kballard/go-shellquote"
)

// Stage names used in results and logs.
const (
	StageFilter    = "filter"
	StageCorrect   = "correct"
	StageFastQC    = "fastqc"
	StageMultiQC   = "multiqc"
	StageForensics = "forensics"
)

// Status is the terminal state of a stage.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailure   Status = "failure"
	StatusCancelled Status = "cancelled"
)

// Invocation is one external-tool call.
type Invocation struct {
	Stage  string
	Sample string // Empty for batch stages.
	Name   string // Executable name or path.
	Args   []string
	Dir    string // Working directory; empty inherits.
}

// CommandLine renders the invocation as a shell-quoted string.
func (inv Invocation) CommandLine() string {
	return shellquote.Join(append([]string{inv.Name}, inv.Args...)...)
}

// StageResult is the immutable outcome of one invocation.
type StageResult struct {
	Stage    string        `yaml:"stage" json:"stage"`
	Sample   string        `yaml:"sample,omitempty" json:"sample,omitempty"`
	Status   Status        `yaml:"status" json:"status"`
	ExitCode int           `yaml:"exit_code" json:"exit_code"`
	Message  string        `yaml:"message,omitempty" json:"message,omitempty"`
	Duration time.Duration `yaml:"duration" json:"duration"`
	Command  string        `yaml:"command" json:"command"`
}

// OK reports whether the stage succeeded.
func (r StageResult) OK() bool { return r.Status == StatusSuccess }

// Runner executes invocations. Implementations must be safe for concurrent use.
type Runner interface {
	Run(ctx context.Context, inv Invocation) StageResult
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, inv Invocation) StageResult

// Run calls f(ctx, inv).
func (f RunnerFunc) Run(ctx context.Context, inv Invocation) StageResult { return f(ctx, inv) }
