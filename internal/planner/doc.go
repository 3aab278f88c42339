// Package planner decides which stages a sample passes through and with
// which inputs, outputs and modes. It builds a SamplePlan that the tool
// package renders into command lines.
//
//   - SamplePlan, FilterStep, CorrectStep, ForensicsStep (types.go)
//   - BuildPlan: filter mode (merge, split, single-end), correction mode,
//     thread split (planner.go)
//   - BuildForensicsPlan: forensic workflow step (forensics.go)
package planner
