// Package executor drives one brick through its generation lifecycle:
// pending, generating, writing, verifying, then success or failed. A
// verification failure below the attempt limit loops back to generating with
// the verifier's diagnostic as corrective feedback.
package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"brickyard/internal/brick"
	"brickyard/internal/config"
	"brickyard/internal/errors"
	"brickyard/internal/log"
	"brickyard/internal/payload"
	"brickyard/internal/provider"
	"brickyard/internal/verify"
)

// Executor generates, writes, and verifies single bricks
type Executor struct {
	completer provider.Completer
	verifier  *verify.Verifier
	cfg       config.Config
	logger    *log.Logger
}

// New creates an Executor
func New(completer provider.Completer, verifier *verify.Verifier, cfg config.Config, logger *log.Logger) *Executor {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Executor{
		completer: completer,
		verifier:  verifier,
		cfg:       cfg,
		logger:    logger.With("component", "executor"),
	}
}

// filesDocument is the generation response shape
type filesDocument struct {
	Files []generatedFile `json:"files"`
}

type generatedFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Execute runs the state machine for one brick. The returned result is
// always terminal: success with the generated files, or failed with an error
// summary. Terminal states are sticky; the caller never re-executes a brick
// within a run.
func (e *Executor) Execute(ctx context.Context, bp brick.BrickPlan, contractText, specText string) brick.ExecutionResult {
	result := brick.ExecutionResult{BrickName: bp.Name}

	policy := payload.Policy{
		MaxAttempts:  e.cfg.BrickMaxAttempts,
		InitialDelay: e.cfg.RetryDelay,
		Multiplier:   e.cfg.RetryMultiplier,
	}

	files, err := payload.Retry(ctx, policy, func(ctx context.Context, fb payload.Feedback) ([]string, error) {
		result.Attempts = fb.Attempt
		logger := e.logger.With("brick", bp.Name, "attempt", fb.Attempt)

		logger.Debug("state transition", "state", "generating")
		doc, err := e.generate(ctx, bp, contractText, specText, fb)
		if err != nil {
			return nil, err
		}

		logger.Debug("state transition", "state", "writing")
		written, err := e.write(bp, doc)
		if err != nil {
			return nil, err
		}

		logger.Debug("state transition", "state", "verifying")
		if res := e.verifier.Verify(ctx, bp, written); !res.OK {
			// The diagnostic becomes the next attempt's corrective context.
			return nil, fmt.Errorf("verification failed: %s", res.Diagnostic)
		}
		return written, nil
	})

	if err != nil {
		result.Status = brick.StatusFailed
		result.ErrorSummary = err.Error()
		e.logger.WithError(err).Error("brick failed", "brick", bp.Name, "attempts", result.Attempts)
		return result
	}

	result.Status = brick.StatusSuccess
	result.GeneratedFiles = files
	e.logger.Info("brick succeeded", "brick", bp.Name, "attempts", result.Attempts, "files", len(files))
	return result
}

// generate invokes the completion capability and parses the file set
func (e *Executor) generate(ctx context.Context, bp brick.BrickPlan, contractText, specText string, fb payload.Feedback) (filesDocument, error) {
	resp, err := e.completer.Complete(ctx, &provider.CompletionRequest{
		SystemPrompt: generateSystemPrompt,
		Prompt:       buildGeneratePrompt(bp, contractText, specText, fb),
		Timeout:      e.cfg.CompletionTimeout,
		AccessMode:   provider.AccessWriteEnabled,
	})
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeProviderUnavailable) || errors.IsCode(err, errors.ErrCodeProviderAuth) {
			return filesDocument{}, payload.Fatal(err)
		}
		return filesDocument{}, err
	}

	var doc filesDocument
	if err := payload.ExtractInto(resp.Content, &doc); err != nil {
		return filesDocument{}, err
	}
	if len(doc.Files) == 0 {
		return filesDocument{}, fmt.Errorf("generation produced no files for brick %q", bp.Name)
	}
	for _, f := range doc.Files {
		if err := validatePath(f.Path); err != nil {
			return filesDocument{}, err
		}
		if strings.TrimSpace(f.Content) == "" {
			return filesDocument{}, fmt.Errorf("generated file %q is empty", f.Path)
		}
	}
	return doc, nil
}

// write persists the generated files under the brick's target directory.
// Each file goes through an atomic temp-then-rename, so cancellation during
// the writing phase never leaves a half-written file at its final path.
func (e *Executor) write(bp brick.BrickPlan, doc filesDocument) ([]string, error) {
	targetDir := filepath.Join(e.cfg.OutputRoot, bp.TargetDir)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDirectoryFailed, "create target directory: "+targetDir, err)
	}

	written := make([]string, 0, len(doc.Files))
	for _, f := range doc.Files {
		dest := filepath.Join(targetDir, f.Path)
		if err := brick.WriteFileAtomic(dest, []byte(f.Content), 0o644); err != nil {
			// Filesystem failures are not recoverable by regeneration.
			return nil, payload.Fatal(errors.Wrap(errors.ErrCodeBrickWrite,
				fmt.Sprintf("write generated file for brick %q", bp.Name), err))
		}
		written = append(written, dest)
	}
	return written, nil
}

// validatePath rejects generated paths that would escape the target directory
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("generated file has an empty path")
	}
	if filepath.IsAbs(path) {
		return fmt.Errorf("generated file path %q must be relative", path)
	}
	clean := filepath.Clean(path)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("generated file path %q escapes the target directory", path)
	}
	return nil
}
