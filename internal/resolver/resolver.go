// Package resolver materializes each brick's contract and spec documents.
// Existing documents are used as-is; missing ones are synthesized through an
// LLM round-trip. A synthesized contract must enumerate the brick's public
// exports: a contract that omits a symbol its consumers need is a
// specification defect and is caught here, not at verification time.
package resolver

import (
	"context"
	"fmt"
	"os"
	"strings"

	"brickyard/internal/brick"
	"brickyard/internal/config"
	"brickyard/internal/errors"
	"brickyard/internal/log"
	"brickyard/internal/payload"
	"brickyard/internal/provider"
)

// Resolver resolves or synthesizes brick documents
type Resolver struct {
	completer provider.Completer
	cfg       config.Config
	logger    *log.Logger
}

// New creates a Resolver
func New(completer provider.Completer, cfg config.Config, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Resolver{
		completer: completer,
		cfg:       cfg,
		logger:    logger.With("component", "resolver"),
	}
}

// Documents references the resolved contract and spec for a brick
type Documents struct {
	Contract brick.DocumentRef
	Spec     brick.DocumentRef
}

// specDocument is the synthesis response shape
type specDocument struct {
	Contract string   `json:"contract"`
	Spec     string   `json:"spec"`
	Exports  []string `json:"exports"`
}

// Resolve returns the brick's contract and spec documents, synthesizing and
// writing them atomically when they do not yet exist. Retry exhaustion fails
// with a BRICK-003 error, which the orchestrator treats as a hard stop for
// the brick.
func (r *Resolver) Resolve(ctx context.Context, bp brick.BrickPlan) (Documents, error) {
	contractExists := fileExists(bp.ContractPath)
	specExists := fileExists(bp.SpecPath)

	if contractExists && specExists {
		return r.refs(bp)
	}

	policy := payload.Policy{
		MaxAttempts:  r.cfg.BrickMaxAttempts,
		InitialDelay: r.cfg.RetryDelay,
		Multiplier:   r.cfg.RetryMultiplier,
	}

	doc, err := payload.Retry(ctx, policy, func(ctx context.Context, fb payload.Feedback) (specDocument, error) {
		r.logger.Debug("synthesizing documents", "brick", bp.Name, "attempt", fb.Attempt)

		resp, err := r.completer.Complete(ctx, &provider.CompletionRequest{
			SystemPrompt: synthesisSystemPrompt,
			Prompt:       buildSynthesisPrompt(bp, fb),
			Timeout:      r.cfg.CompletionTimeout,
			AccessMode:   provider.AccessReadOnly,
		})
		if err != nil {
			if errors.IsCode(err, errors.ErrCodeProviderUnavailable) || errors.IsCode(err, errors.ErrCodeProviderAuth) {
				return specDocument{}, payload.Fatal(err)
			}
			return specDocument{}, err
		}

		var doc specDocument
		if err := payload.ExtractInto(resp.Content, &doc); err != nil {
			return specDocument{}, err
		}
		if err := validateSynthesis(bp, doc); err != nil {
			return specDocument{}, err
		}
		return doc, nil
	})
	if err != nil {
		return Documents{}, errors.NewSpecSynthesisError(bp.Name, err)
	}

	if !contractExists {
		if err := brick.WriteFileAtomic(bp.ContractPath, []byte(doc.Contract), 0o644); err != nil {
			return Documents{}, err
		}
	}
	if !specExists {
		if err := brick.WriteFileAtomic(bp.SpecPath, []byte(doc.Spec), 0o644); err != nil {
			return Documents{}, err
		}
	}

	r.logger.Info("documents resolved", "brick", bp.Name, "synthesized", true)
	return r.refs(bp)
}

func (r *Resolver) refs(bp brick.BrickPlan) (Documents, error) {
	contract, err := brick.RefForFile(bp.ContractPath)
	if err != nil {
		return Documents{}, err
	}
	spec, err := brick.RefForFile(bp.SpecPath)
	if err != nil {
		return Documents{}, err
	}
	return Documents{Contract: contract, Spec: spec}, nil
}

// validateSynthesis checks the synthesized documents: both non-empty, and the
// contract's export list covers every symbol the plan promises downstream
// consumers.
func validateSynthesis(bp brick.BrickPlan, doc specDocument) error {
	if strings.TrimSpace(doc.Contract) == "" {
		return fmt.Errorf("synthesized contract for brick %q is empty", bp.Name)
	}
	if strings.TrimSpace(doc.Spec) == "" {
		return fmt.Errorf("synthesized spec for brick %q is empty", bp.Name)
	}
	if len(doc.Exports) == 0 {
		return fmt.Errorf("synthesized contract for brick %q enumerates no public exports", bp.Name)
	}

	declared := make(map[string]bool, len(doc.Exports))
	for _, e := range doc.Exports {
		declared[e] = true
	}
	for _, required := range bp.Exports {
		if !declared[required] {
			return fmt.Errorf("synthesized contract for brick %q omits required export %q", bp.Name, required)
		}
	}

	// The contract text itself must name each export; consumers read the
	// document, not the sidecar list.
	for _, e := range doc.Exports {
		if !strings.Contains(doc.Contract, e) {
			return fmt.Errorf("synthesized contract for brick %q does not mention export %q in its text", bp.Name, e)
		}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}
