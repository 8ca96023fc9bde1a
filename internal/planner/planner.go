// Package planner turns a module contract and implementation spec into a
// validated Plan through one LLM round-trip per attempt.
package planner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"brickyard/internal/brick"
	"brickyard/internal/config"
	"brickyard/internal/errors"
	"brickyard/internal/log"
	"brickyard/internal/payload"
	"brickyard/internal/provider"
)

// Planner generates and persists decomposition plans
type Planner struct {
	completer provider.Completer
	store     *brick.Store
	cfg       config.Config
	logger    *log.Logger
}

// New creates a Planner
func New(completer provider.Completer, store *brick.Store, cfg config.Config, logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Planner{
		completer: completer,
		store:     store,
		cfg:       cfg,
		logger:    logger.With("component", "planner"),
	}
}

// planDocument is the shape the model must produce. It is validated at the
// parse boundary; raw model output never travels deeper into the pipeline.
type planDocument struct {
	Bricks []brickDocument `json:"bricks"`
}

type brickDocument struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	TargetDir   string   `json:"target_directory"`
	Kind        string   `json:"kind"`
	DependsOn   []string `json:"depends_on,omitempty"`
	Exports     []string `json:"exports,omitempty"`
}

// Generate produces a Plan for the module, validates it against the plan
// schema, and persists it. Schema violations are treated exactly like parse
// failures: the violation text becomes corrective feedback for the next
// attempt. After retry exhaustion it fails with a PLAN-004 error; it never
// substitutes a default or empty plan.
func (p *Planner) Generate(ctx context.Context, moduleName, contractText, specText string) (*brick.Plan, error) {
	policy := payload.Policy{
		MaxAttempts:  p.cfg.PlanMaxAttempts,
		InitialDelay: p.cfg.RetryDelay,
		Multiplier:   p.cfg.RetryMultiplier,
	}

	plan, err := payload.Retry(ctx, policy, func(ctx context.Context, fb payload.Feedback) (*brick.Plan, error) {
		p.logger.Debug("requesting plan", "module", moduleName, "attempt", fb.Attempt)

		resp, err := p.completer.Complete(ctx, &provider.CompletionRequest{
			SystemPrompt: planSystemPrompt,
			Prompt:       buildPlanPrompt(moduleName, contractText, specText, fb),
			Timeout:      p.cfg.CompletionTimeout,
			AccessMode:   provider.AccessReadOnly,
		})
		if err != nil {
			// A dead provider is an environment failure, not a malformed
			// response; retrying the same call will not help.
			if errors.IsCode(err, errors.ErrCodeProviderUnavailable) || errors.IsCode(err, errors.ErrCodeProviderAuth) {
				return nil, payload.Fatal(err)
			}
			return nil, err
		}

		var doc planDocument
		if err := payload.ExtractInto(resp.Content, &doc); err != nil {
			return nil, err
		}

		candidate := p.assemble(moduleName, doc)
		if err := candidate.Validate(); err != nil {
			return nil, err
		}
		return candidate, nil
	})
	if err != nil {
		return nil, errors.NewPlanGenerationError(moduleName, err)
	}

	plan.CreatedAt = time.Now().UTC()
	plan.GenerationSessionID = uuid.NewString()

	if err := p.store.Save(plan); err != nil {
		return nil, err
	}

	p.logger.Info("plan generated", "module", moduleName, "bricks", len(plan.Bricks),
		"session", plan.GenerationSessionID)
	return plan, nil
}

// LoadOrGenerate returns the stored plan when one exists, generating
// otherwise. With force set, a fresh plan always replaces the stored one.
func (p *Planner) LoadOrGenerate(ctx context.Context, moduleName, contractText, specText string, force bool) (*brick.Plan, error) {
	if !force && p.store.Exists(moduleName) {
		plan, err := p.store.Load(moduleName)
		if err != nil {
			return nil, err
		}
		p.logger.Info("using stored plan", "module", moduleName, "bricks", len(plan.Bricks))
		return plan, nil
	}
	return p.Generate(ctx, moduleName, contractText, specText)
}

// assemble converts a parsed plan document into a Plan, deriving document
// paths for bricks that the model left unbound.
func (p *Planner) assemble(moduleName string, doc planDocument) *brick.Plan {
	plan := &brick.Plan{
		ModuleName: moduleName,
		Bricks:     make([]brick.BrickPlan, 0, len(doc.Bricks)),
	}
	for _, b := range doc.Bricks {
		kind := b.Kind
		if kind == "" {
			kind = brick.KindPythonModule
		}
		plan.Bricks = append(plan.Bricks, brick.BrickPlan{
			Name:         b.Name,
			Description:  b.Description,
			ContractPath: filepath.Join(p.cfg.ModuleRoot, fmt.Sprintf("%s.contract.md", b.Name)),
			SpecPath:     filepath.Join(p.cfg.ModuleRoot, fmt.Sprintf("%s.spec.md", b.Name)),
			TargetDir:    b.TargetDir,
			Kind:         kind,
			DependsOn:    b.DependsOn,
			Exports:      b.Exports,
		})
	}
	return plan
}
