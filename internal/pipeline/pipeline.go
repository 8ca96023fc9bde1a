// Package pipeline orchestrates a full module generation run: plan, then per
// brick resolve documents, execute, and verify, halting at the first terminal
// brick failure. The orchestrator performs no LLM calls itself; it sequences
// the planner, resolver, and executor.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"slices"

	"golang.org/x/sync/errgroup"

	"brickyard/internal/brick"
	"brickyard/internal/config"
	"brickyard/internal/errors"
	"brickyard/internal/executor"
	"brickyard/internal/log"
	"brickyard/internal/planner"
	"brickyard/internal/resolver"
)

// Options adjusts a single run
type Options struct {
	// RefreshPlan discards any stored plan and generates a fresh one
	RefreshPlan bool
}

// Outcome classifies a completed run
type Outcome string

const (
	// OutcomeFull means every brick succeeded
	OutcomeFull Outcome = "full"

	// OutcomePartial means some bricks succeeded before a failure halted the run
	OutcomePartial Outcome = "partial"

	// OutcomeNothing means no brick produced output
	OutcomeNothing Outcome = "nothing"
)

// Report aggregates per-brick results for one run. Skipped bricks are
// recorded, never silently omitted.
type Report struct {
	ModuleName string
	SessionID  string
	Succeeded  []brick.ExecutionResult
	Failed     []brick.ExecutionResult
	Skipped    []brick.ExecutionResult
}

// Outcome classifies the run: full success, partial output, or nothing
func (r *Report) Outcome() Outcome {
	if len(r.Failed) == 0 && len(r.Skipped) == 0 {
		return OutcomeFull
	}
	if len(r.Succeeded) > 0 {
		return OutcomePartial
	}
	return OutcomeNothing
}

// Results returns all per-brick results in plan order
func (r *Report) Results() []brick.ExecutionResult {
	all := make([]brick.ExecutionResult, 0, len(r.Succeeded)+len(r.Failed)+len(r.Skipped))
	all = append(all, r.Succeeded...)
	all = append(all, r.Failed...)
	all = append(all, r.Skipped...)
	return all
}

// Pipeline runs module generation end to end
type Pipeline struct {
	planner  *planner.Planner
	resolver *resolver.Resolver
	executor *executor.Executor
	cfg      config.Config
	logger   *log.Logger
}

// New creates a Pipeline
func New(p *planner.Planner, r *resolver.Resolver, e *executor.Executor, cfg config.Config, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Pipeline{
		planner:  p,
		resolver: r,
		executor: e,
		cfg:      cfg,
		logger:   logger.With("component", "pipeline"),
	}
}

// Run generates or loads the module's plan and executes its bricks in order.
// A plan-level failure returns an error with no report; brick failures are
// recorded in the report and never returned as errors.
func (p *Pipeline) Run(ctx context.Context, moduleName, contractText, specText string, opts Options) (*Report, error) {
	return p.run(ctx, moduleName, contractText, specText, opts, 1, nil)
}

// run is the depth-aware entry point shared by top-level and nested modules.
// path holds the module names along the recursion chain, outermost first.
func (p *Pipeline) run(ctx context.Context, moduleName, contractText, specText string, opts Options, depth int, path []string) (*Report, error) {
	if depth > p.cfg.MaxDepth {
		return nil, errors.New(errors.ErrCodeBrickDepthLimit,
			fmt.Sprintf("module %q exceeds the nesting depth limit of %d", moduleName, p.cfg.MaxDepth)).
			WithSuggestion("Raise max_depth in the configuration if the nesting is intentional")
	}
	if slices.Contains(path, moduleName) {
		return nil, errors.New(errors.ErrCodeBrickModuleCycle,
			fmt.Sprintf("module %q recursively contains itself (path: %v)", moduleName, append(path, moduleName)))
	}
	// Cloned so concurrent nested runs never share the backing array.
	path = append(slices.Clone(path), moduleName)

	plan, err := p.planner.LoadOrGenerate(ctx, moduleName, contractText, specText, opts.RefreshPlan)
	if err != nil {
		return nil, err
	}

	report := &Report{ModuleName: moduleName, SessionID: plan.GenerationSessionID}
	p.logger.Info("run started", "module", moduleName, "bricks", len(plan.Bricks), "depth", depth)

	for i := 0; i < len(plan.Bricks); {
		batch := p.nextBatch(plan.Bricks, i)
		results := p.executeBatch(ctx, batch, depth, path)

		halted := false
		for _, res := range results {
			if res.Status == brick.StatusSuccess {
				report.Succeeded = append(report.Succeeded, res)
			} else {
				report.Failed = append(report.Failed, res)
				halted = true
			}
		}
		i += len(batch)

		if halted {
			for _, remaining := range plan.Bricks[i:] {
				report.Skipped = append(report.Skipped, brick.ExecutionResult{
					BrickName: remaining.Name,
					Status:    brick.StatusSkipped,
				})
			}
			break
		}
	}

	p.logger.Info("run finished", "module", moduleName, "outcome", string(report.Outcome()),
		"succeeded", len(report.Succeeded), "failed", len(report.Failed), "skipped", len(report.Skipped))
	return report, nil
}

// nextBatch returns the longest run of consecutive bricks starting at i that
// may execute concurrently: no dependency edges between them and disjoint
// target directories. With Parallelism ≤ 1 every batch is a single brick, so
// execution order is exactly plan order.
func (p *Pipeline) nextBatch(bricks []brick.BrickPlan, i int) []brick.BrickPlan {
	if p.cfg.Parallelism <= 1 {
		return bricks[i : i+1]
	}

	batch := bricks[i : i+1]
	members := map[string]bool{bricks[i].Name: true}
	dirs := map[string]bool{bricks[i].TargetDir: true}

	for j := i + 1; j < len(bricks); j++ {
		next := bricks[j]
		if dirs[next.TargetDir] {
			break
		}
		dependsOnBatch := false
		for _, dep := range next.DependsOn {
			if members[dep] {
				dependsOnBatch = true
				break
			}
		}
		if dependsOnBatch {
			break
		}
		batch = bricks[i : j+1]
		members[next.Name] = true
		dirs[next.TargetDir] = true
	}
	return batch
}

// executeBatch runs a batch of independent bricks, bounded by the configured
// parallelism. Results come back in batch order regardless of completion
// order.
func (p *Pipeline) executeBatch(ctx context.Context, batch []brick.BrickPlan, depth int, path []string) []brick.ExecutionResult {
	results := make([]brick.ExecutionResult, len(batch))

	if len(batch) == 1 {
		results[0] = p.executeBrick(ctx, batch[0], depth, path)
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Parallelism)
	for i, bp := range batch {
		i, bp := i, bp
		g.Go(func() error {
			// Each goroutine writes its own slice element.
			results[i] = p.executeBrick(gctx, bp, depth, path)
			return nil
		})
	}
	// Brick failures are carried in results, not as errgroup errors.
	_ = g.Wait()
	return results
}

// executeBrick resolves one brick's documents and executes it. Resolution
// failures and nested-module failures are terminal for the brick and reported
// through its result, matching executor semantics.
func (p *Pipeline) executeBrick(ctx context.Context, bp brick.BrickPlan, depth int, path []string) brick.ExecutionResult {
	docs, err := p.resolver.Resolve(ctx, bp)
	if err != nil {
		return brick.ExecutionResult{
			BrickName:    bp.Name,
			Status:       brick.StatusFailed,
			ErrorSummary: err.Error(),
		}
	}

	contractText, specText, err := readDocuments(docs)
	if err != nil {
		return brick.ExecutionResult{
			BrickName:    bp.Name,
			Status:       brick.StatusFailed,
			ErrorSummary: err.Error(),
		}
	}

	if bp.Kind == brick.KindModule {
		return p.executeNested(ctx, bp, contractText, specText, depth, path)
	}

	return p.executor.Execute(ctx, bp, contractText, specText)
}

// executeNested re-enters the pipeline for a brick that is itself a module.
// The nested run's outcome collapses into the parent brick's result: anything
// short of full success fails the brick.
func (p *Pipeline) executeNested(ctx context.Context, bp brick.BrickPlan, contractText, specText string, depth int, path []string) brick.ExecutionResult {
	p.logger.Info("entering nested module", "module", bp.Name, "depth", depth+1)

	nested, err := p.run(ctx, bp.Name, contractText, specText, Options{}, depth+1, path)
	if err != nil {
		return brick.ExecutionResult{
			BrickName:    bp.Name,
			Status:       brick.StatusFailed,
			Attempts:     1,
			ErrorSummary: err.Error(),
		}
	}

	result := brick.ExecutionResult{BrickName: bp.Name, Attempts: 1}
	if nested.Outcome() == OutcomeFull {
		result.Status = brick.StatusSuccess
		for _, r := range nested.Succeeded {
			result.GeneratedFiles = append(result.GeneratedFiles, r.GeneratedFiles...)
		}
		return result
	}

	result.Status = brick.StatusFailed
	result.ErrorSummary = fmt.Sprintf("nested module %q finished with outcome %s", bp.Name, nested.Outcome())
	for _, r := range nested.Failed {
		result.ErrorSummary += fmt.Sprintf("; brick %s: %s", r.BrickName, r.ErrorSummary)
	}
	return result
}

// readDocuments loads the resolved contract and spec text
func readDocuments(docs resolver.Documents) (string, string, error) {
	contract, err := os.ReadFile(docs.Contract.Path)
	if err != nil {
		return "", "", errors.Wrap(errors.ErrCodeFileReadFailed, "read contract: "+docs.Contract.Path, err)
	}
	spec, err := os.ReadFile(docs.Spec.Path)
	if err != nil {
		return "", "", errors.Wrap(errors.ErrCodeFileReadFailed, "read spec: "+docs.Spec.Path, err)
	}
	return string(contract), string(spec), nil
}
