// Package exitcode maps pipeline outcomes and errors to process exit codes.
package exitcode

import (
	"os"

	"brickyard/internal/errors"
	"brickyard/internal/pipeline"
)

const (
	// Success indicates a fully generated module
	Success = 0

	// UsageError indicates invalid usage or configuration
	UsageError = 1

	// PlanFailure indicates the run produced no plan
	PlanFailure = 2

	// BrickFailure indicates at least one brick failed or was skipped
	BrickFailure = 3

	// Interrupted indicates cancellation by signal
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// FromError maps an error to its exit code by the error's code family
func FromError(err error) int {
	if err == nil {
		return Success
	}

	switch errors.CodeOf(err) {
	case errors.ErrCodeConfigInvalid, errors.ErrCodeProviderConfig, errors.ErrCodeProviderAuth:
		return UsageError
	case errors.ErrCodePlanGeneration, errors.ErrCodePlanNotFound, errors.ErrCodePlanCorrupt,
		errors.ErrCodePlanInvalid, errors.ErrCodePlanCyclicDep:
		return PlanFailure
	case errors.ErrCodeBrickDepthLimit, errors.ErrCodeBrickModuleCycle:
		return PlanFailure
	default:
		return UsageError
	}
}

// FromOutcome maps a completed run's outcome to its exit code
func FromOutcome(o pipeline.Outcome) int {
	if o == pipeline.OutcomeFull {
		return Success
	}
	return BrickFailure
}

// Description returns a human-readable description of an exit code
func Description(code int) string {
	switch code {
	case Success:
		return "Success"
	case UsageError:
		return "Usage or configuration error"
	case PlanFailure:
		return "Plan generation failed"
	case BrickFailure:
		return "One or more bricks failed"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
