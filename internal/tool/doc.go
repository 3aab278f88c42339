// Package tool builds and executes external-tool command lines.
//
// Each stage of a sample runs as one process through a [Runner]. The
// outcome is a [StageResult] that is never mutated after it is returned.
// Failures carry the tail of the captured stderr plus a short hint when the
// output matches a known failure class. Nothing here retries.
//
// Files: types.go (Invocation, StageResult, Runner), builder.go (argument
// lists), executor.go (ExecRunner, DryRunner), errors.go (stderr
// classification).
package tool
