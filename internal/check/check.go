// Package check provides system diagnostics (the check command) and the
// pre-pipeline dependency validation (CheckDeps) for the external tools.
package check

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/sfilges/umiPipeline/internal/config"
	"github.com/sfilges/umiPipeline/internal/display"
)

// Sentinel errors returned by CheckDeps and Probe.
var (
	ErrToolNotFound = errors.New("required tool not found on PATH")
	ErrToolTooOld   = errors.New("tool version below supported minimum")
	ErrNoVersion    = errors.New("no version number in tool output")
)

// versionTimeout bounds each version probe.
const versionTimeout = 10 * time.Second

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(string, ...interface{})
}

// Tool describes one external executable the pipeline depends on.
type Tool struct {
	Name    string // Display name.
	Command string // Executable name or path, from configuration.

	// VersionArgs are passed when probing the version. Nil skips the probe
	// unless Bare is set, in which case the tool runs without arguments.
	VersionArgs []string
	Bare        bool   // Run without arguments; the exit status is ignored.
	Min         string // Minimum supported version; empty for none.
	Install     string // Hint shown when the tool is missing.
}

func (t Tool) probesVersion() bool { return t.VersionArgs != nil || t.Bare }

// RequiredTools lists the tools a run needs under cfg. Disabled stages
// drop their tools.
func RequiredTools(cfg *config.Config) []Tool {
	var tools []Tool
	if !cfg.SkipFiltering {
		tools = append(tools, Tool{
			Name: "fastp", Command: cfg.Tools.Fastp,
			VersionArgs: []string{"--version"}, Min: "0.20.0",
			Install: "conda install -c bioconda fastp",
		})
	}
	tools = append(tools,
		Tool{
			Name: "umierrorcorrect", Command: cfg.Tools.UMIErrorCorrect,
			Install: "pip install umierrorcorrect",
		},
		bwaTool(cfg),
	)
	if !cfg.SkipFastQC {
		tools = append(tools, Tool{
			Name: "fastqc", Command: cfg.Tools.FastQC,
			VersionArgs: []string{"--version"},
			Install:     "conda install -c bioconda fastqc",
		})
	}
	if !cfg.SkipMultiQC {
		tools = append(tools, Tool{
			Name: "multiqc", Command: cfg.Tools.MultiQC,
			VersionArgs: []string{"--version"}, Min: "1.9.0",
			Install: "pip install multiqc",
		})
	}
	return tools
}

// ForensicsTools lists the tools the forensics command needs.
func ForensicsTools(cfg *config.Config) []Tool {
	return []Tool{
		{
			Name: "umierrorcorrect-forensics", Command: cfg.Tools.Forensics,
			Install: "pip install umierrorcorrect",
		},
		bwaTool(cfg),
	}
}

// bwa is invoked by the error-correction tools, never directly.
func bwaTool(cfg *config.Config) Tool {
	return Tool{
		Name: "bwa", Command: cfg.Tools.BWA,
		Bare: true, Min: "0.7.0",
		Install: "conda install -c bioconda bwa",
	}
}

// CheckDeps verifies that every tool resolves on PATH. All missing tools
// are reported together; the error wraps ErrToolNotFound and carries
// install hints.
func CheckDeps(tools []Tool) error {
	var missing, hints []string
	for _, t := range tools {
		if _, err := exec.LookPath(t.Command); err != nil {
			missing = append(missing, fmt.Sprintf("%s (%s)", t.Name, t.Command))
			if t.Install != "" {
				hints = append(hints, t.Install)
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	err := errors.Wrapf(ErrToolNotFound, "%s", strings.Join(missing, ", "))
	if len(hints) > 0 {
		err = errors.WithHint(err, "install with:\n  "+strings.Join(hints, "\n  "))
	}
	return err
}

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// ParseVersion extracts the first dotted version number from tool output,
// e.g. "fastp 0.23.4", "FastQC v0.12.1", "Version: 0.7.17-r1188".
func ParseVersion(out string) (*semver.Version, error) {
	m := versionRe.FindString(out)
	if m == "" {
		return nil, errors.Wrapf(ErrNoVersion, "%q", display.Truncate(strings.TrimSpace(out), 60))
	}
	return semver.NewVersion(m)
}

// Status is the outcome of probing one tool.
type Status struct {
	Tool    Tool
	Path    string // Resolved executable; empty when not found.
	Version string // Empty when unknown.
	Err     error  // nil when the tool is usable.
}

// Probe resolves t on PATH and, where supported, checks its version
// against t.Min. An unparseable version is reported but not fatal.
func Probe(ctx context.Context, t Tool) Status {
	st := Status{Tool: t}
	path, err := exec.LookPath(t.Command)
	if err != nil {
		st.Err = errors.Wrapf(ErrToolNotFound, "%s", t.Command)
		return st
	}
	st.Path = path
	if !t.probesVersion() {
		return st
	}

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, path, t.VersionArgs...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil && !t.Bare {
		return st
	}

	v, err := ParseVersion(out.String())
	if err != nil {
		return st
	}
	st.Version = v.String()
	if t.Min == "" {
		return st
	}
	c, err := semver.NewConstraint(">= " + t.Min)
	if err != nil {
		return st
	}
	if !c.Check(v) {
		st.Err = errors.Wrapf(ErrToolTooOld, "%s %s < %s", t.Name, v, t.Min)
	}
	return st
}

// RunCheck prints availability and versions of tools, plus host CPU and
// memory and the default concurrency. It returns false when a tool is
// missing or too old. This is informational only; it does not stop on the
// first problem.
func RunCheck(ctx context.Context, tools []Tool, w io.Writer, log Logger) bool {
	log.Info("=== System Check ===")

	ok := true
	rows := make([][]string, 0, len(tools))
	for _, t := range tools {
		st := Probe(ctx, t)
		version := st.Version
		if version == "" {
			version = "-"
		}
		state := "ok"
		if st.Err != nil {
			ok = false
			state = "missing"
			if errors.Is(st.Err, ErrToolTooOld) {
				state = "too old (need " + t.Min + ")"
			}
		}
		path := st.Path
		if path == "" {
			path = t.Command
		}
		rows = append(rows, []string{t.Name, path, version, state})
		if st.Err != nil && t.Install != "" && errors.Is(st.Err, ErrToolNotFound) {
			log.Debug("%s: %s", t.Name, t.Install)
		}
	}
	if err := display.RenderTable(w, []string{"Tool", "Path", "Version", "Status"}, rows); err != nil {
		log.Warn("Cannot render tool table: %v", err)
	}

	checkHost(ctx, log)

	if ok {
		log.Success("All required tools found")
	} else {
		log.Error("Some required tools are missing or outdated")
	}
	return ok
}

// checkHost logs CPU and memory figures used to size a run.
func checkHost(ctx context.Context, log Logger) {
	logical, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		log.Warn("Cannot read CPU count: %v", err)
	} else {
		physical, _ := cpu.CountsWithContext(ctx, false)
		model := "unknown CPU"
		if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
			model = infos[0].ModelName
		}
		log.Info("CPU: %s, %d logical / %d physical cores", model, logical, physical)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		log.Warn("Cannot read memory: %v", err)
	} else {
		log.Info("Memory: %s available of %s",
			display.FormatBytes(int64(vm.Available)), display.FormatBytes(int64(vm.Total)))
	}

	log.Info("Default concurrency: %d samples", config.DefaultConcurrency())
}
