package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Payload errors (PAYLOAD-001 to PAYLOAD-099)
	ErrCodePayloadNotFound ErrorCode = "PAYLOAD-001"
	ErrCodePayloadInvalid  ErrorCode = "PAYLOAD-002"

	// Retry errors (RETRY-001 to RETRY-099)
	ErrCodeRetryExhausted ErrorCode = "RETRY-001"
	ErrCodeRetryFatal     ErrorCode = "RETRY-002"

	// Plan errors (PLAN-001 to PLAN-099)
	ErrCodePlanNotFound   ErrorCode = "PLAN-001"
	ErrCodePlanCorrupt    ErrorCode = "PLAN-002"
	ErrCodePlanInvalid    ErrorCode = "PLAN-003"
	ErrCodePlanGeneration ErrorCode = "PLAN-004"
	ErrCodePlanCyclicDep  ErrorCode = "PLAN-005"

	// Brick errors (BRICK-001 to BRICK-099)
	ErrCodeBrickGeneration   ErrorCode = "BRICK-001"
	ErrCodeBrickWrite        ErrorCode = "BRICK-002"
	ErrCodeSpecSynthesis     ErrorCode = "BRICK-003"
	ErrCodeBrickDepthLimit   ErrorCode = "BRICK-004"
	ErrCodeBrickModuleCycle  ErrorCode = "BRICK-005"

	// Verification errors (VERIFY-001 to VERIFY-099)
	ErrCodeVerifyMissingFile ErrorCode = "VERIFY-001"
	ErrCodeVerifySyntax      ErrorCode = "VERIFY-002"
	ErrCodeVerifySmoke       ErrorCode = "VERIFY-003"
	ErrCodeVerifyTimeout     ErrorCode = "VERIFY-004"

	// Provider errors (PROVIDER-001 to PROVIDER-099)
	ErrCodeProviderConfig      ErrorCode = "PROVIDER-001"
	ErrCodeProviderAuth        ErrorCode = "PROVIDER-002"
	ErrCodeProviderAPI         ErrorCode = "PROVIDER-003"
	ErrCodeProviderTimeout     ErrorCode = "PROVIDER-004"
	ErrCodeProviderUnavailable ErrorCode = "PROVIDER-005"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound    ErrorCode = "IO-001"
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
	ErrCodeDirectoryFailed ErrorCode = "IO-004"

	// Config errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid ErrorCode = "CONFIG-001"
)

// PipelineError represents an enhanced error with code, suggestions, and a cause
type PipelineError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	Cause       error
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// New creates a new PipelineError
func New(code ErrorCode, message string) *PipelineError {
	return &PipelineError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new PipelineError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *PipelineError {
	return &PipelineError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *PipelineError) WithSuggestion(suggestion string) *PipelineError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *PipelineError) WithSuggestions(suggestions ...string) *PipelineError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// IsCode reports whether err or any error in its chain carries the given code
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		var pe *PipelineError
		if !stderrors.As(err, &pe) {
			return false
		}
		if pe.Code == code {
			return true
		}
		err = pe.Cause
	}
	return false
}

// CodeOf returns the error code of err, or an empty code if err carries none
func CodeOf(err error) ErrorCode {
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// Common error constructors for frequently used errors

// NewPayloadNotFoundError indicates no structured payload could be located in LLM text
func NewPayloadNotFoundError(detail string) *PipelineError {
	return New(ErrCodePayloadNotFound, fmt.Sprintf("no structured payload found in response: %s", detail)).
		WithSuggestion("Inspect the raw model output for formatting issues").
		WithSuggestion("The response may be a refusal rather than a payload")
}

// NewRetryExhaustedError indicates all attempts of a retried operation failed
func NewRetryExhaustedError(attempts int, history []string, last error) *PipelineError {
	msg := fmt.Sprintf("all %d attempts failed", attempts)
	if len(history) > 0 {
		msg += "; attempt history:\n  " + strings.Join(history, "\n  ")
	}
	return Wrap(ErrCodeRetryExhausted, msg, last).
		WithSuggestion("Increase max attempts or the per-call timeout").
		WithSuggestion("Review the attempt history for a recurring failure")
}

// NewPlanNotFoundError indicates no stored plan exists for the module
func NewPlanNotFoundError(moduleName string) *PipelineError {
	return New(ErrCodePlanNotFound, fmt.Sprintf("no plan found for module: %s", moduleName)).
		WithSuggestion("Run 'brickyard generate' to create a plan")
}

// NewPlanCorruptError indicates the stored plan document cannot be decoded
func NewPlanCorruptError(moduleName string, cause error) *PipelineError {
	return Wrap(ErrCodePlanCorrupt, fmt.Sprintf("stored plan for module %s is corrupt", moduleName), cause).
		WithSuggestion("Regenerate the plan with --force").
		WithSuggestion("Check the plans directory for manual edits")
}

// NewPlanGenerationError indicates plan generation exhausted its retries
func NewPlanGenerationError(moduleName string, cause error) *PipelineError {
	return Wrap(ErrCodePlanGeneration, fmt.Sprintf("plan generation failed for module: %s", moduleName), cause).
		WithSuggestion("Review the module contract and spec for ambiguity").
		WithSuggestion("Increase plan retry attempts in the configuration")
}

// NewSpecSynthesisError indicates brick contract/spec synthesis exhausted its retries
func NewSpecSynthesisError(brickName string, cause error) *PipelineError {
	return Wrap(ErrCodeSpecSynthesis, fmt.Sprintf("spec synthesis failed for brick: %s", brickName), cause).
		WithSuggestion("Check the plan's description for this brick").
		WithSuggestion("Write the contract and spec files by hand to skip synthesis")
}

// NewProviderTimeoutError indicates a completion call exceeded its deadline
func NewProviderTimeoutError(timeout string) *PipelineError {
	return New(ErrCodeProviderTimeout, fmt.Sprintf("completion call timed out after %s", timeout)).
		WithSuggestion("Increase the LLM call timeout; generation can legitimately take minutes")
}

// NewFileWriteError creates a file write error
func NewFileWriteError(path string, cause error) *PipelineError {
	return Wrap(ErrCodeFileWriteFailed, fmt.Sprintf("failed to write file: %s", path), cause).
		WithSuggestion("Check directory permissions and available disk space")
}
