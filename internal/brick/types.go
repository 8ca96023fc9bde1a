// Package brick defines the plan data model: a module decomposed into an
// ordered list of independently generatable bricks, plus the store that
// persists plans on disk.
package brick

import (
	"time"
)

// Kind tags what a brick produces. It is a routing tag, not an enforced type
// system; the verifier dispatches on it.
const (
	// KindPythonModule is a generated Python module
	KindPythonModule = "python_module"

	// KindModule marks a nested module brick: the pipeline re-enters itself
	// to plan and generate a sub-module, subject to the recursion guard.
	KindModule = "module"
)

// Plan is the central artifact: an ordered decomposition of a module into
// bricks. Brick order is a valid topological order: a brick may only depend
// on bricks earlier in the list, or on collaborators outside the plan.
type Plan struct {
	ModuleName          string      `json:"module_name"`
	CreatedAt           time.Time   `json:"created_at"`
	GenerationSessionID string      `json:"generation_session_id"`
	Bricks              []BrickPlan `json:"bricks"`
}

// BrickPlan is one row of a Plan
type BrickPlan struct {
	// Name is unique within the plan
	Name string `json:"name"`

	// Description guides contract/spec synthesis and generation
	Description string `json:"description"`

	// ContractPath and SpecPath reference the brick's documents. They must
	// exist or be creatable before the brick's executor phase runs.
	ContractPath string `json:"contract_path"`
	SpecPath     string `json:"spec_path"`

	// TargetDir is where generated files land; unique across the plan
	TargetDir string `json:"target_directory"`

	// Kind tags the brick's output, e.g. "python_module"
	Kind string `json:"kind"`

	// DependsOn names bricks that must complete first; each must appear
	// earlier in the plan's list
	DependsOn []string `json:"depends_on,omitempty"`

	// Exports enumerates the public symbols the brick's contract promises.
	// Downstream bricks and the smoke test depend on name-exact availability.
	Exports []string `json:"exports,omitempty"`

	// Smoke is an optional smoke-run entry point (argv) executed from the
	// target directory after generation
	Smoke []string `json:"smoke,omitempty"`
}

// Status values for a brick execution
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// ExecutionResult is the outcome of running the executor for one brick.
// Created and discarded per run; the orchestrator aggregates them into the
// final report.
type ExecutionResult struct {
	BrickName      string   `json:"brick_name"`
	Status         string   `json:"status"`
	Attempts       int      `json:"attempts"`
	ErrorSummary   string   `json:"error_summary,omitempty"`
	GeneratedFiles []string `json:"generated_files,omitempty"`
}

// DocumentRef identifies a contract or spec document by path and content
// hash. Documents are immutable once referenced by a plan; the hash pins the
// exact content a plan was generated against.
type DocumentRef struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}
