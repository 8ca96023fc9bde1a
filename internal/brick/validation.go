package brick

import (
	"fmt"
	"strings"

	"brickyard/internal/errors"
)

// Validate checks the plan against its schema: required fields present,
// brick names unique, target directories unique, and dependencies referencing
// only earlier bricks. Violations are reported with enough detail to serve as
// corrective feedback for plan regeneration.
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.ModuleName) == "" {
		return errors.New(errors.ErrCodePlanInvalid, "plan is missing module_name")
	}
	if !SafeName(p.ModuleName) {
		return errors.New(errors.ErrCodePlanInvalid,
			fmt.Sprintf("module name %q is unsafe for use in file paths", p.ModuleName))
	}
	if len(p.Bricks) == 0 {
		return errors.New(errors.ErrCodePlanInvalid, "plan contains no bricks")
	}

	seenNames := make(map[string]int, len(p.Bricks))
	seenDirs := make(map[string]string, len(p.Bricks))

	for i, b := range p.Bricks {
		if err := b.validate(); err != nil {
			return errors.Wrap(errors.ErrCodePlanInvalid, fmt.Sprintf("brick %d is invalid", i+1), err)
		}

		if prev, dup := seenNames[b.Name]; dup {
			return errors.New(errors.ErrCodePlanInvalid,
				fmt.Sprintf("duplicate brick name %q (positions %d and %d)", b.Name, prev+1, i+1))
		}
		seenNames[b.Name] = i

		if owner, dup := seenDirs[b.TargetDir]; dup {
			return errors.New(errors.ErrCodePlanInvalid,
				fmt.Sprintf("bricks %q and %q share target directory %q", owner, b.Name, b.TargetDir))
		}
		seenDirs[b.TargetDir] = b.Name

		// Dependencies may only point at earlier bricks; this is the cycle
		// guard for the list-ordered plan shape.
		for _, dep := range b.DependsOn {
			depIdx, ok := seenNames[dep]
			if !ok {
				return errors.New(errors.ErrCodePlanCyclicDep,
					fmt.Sprintf("brick %q depends on %q, which is not an earlier brick in the plan", b.Name, dep))
			}
			if depIdx >= i {
				return errors.New(errors.ErrCodePlanCyclicDep,
					fmt.Sprintf("brick %q has a forward or self dependency on %q", b.Name, dep))
			}
		}
	}

	return nil
}

// SafeName reports whether name can be embedded in a file path without
// escaping its directory. Brick and module names come from LLM output and
// are joined into contract, spec, and plan paths; names carrying separators
// or ".." must never get that far.
func SafeName(name string) bool {
	return name != "" &&
		!strings.ContainsAny(name, `/\`) &&
		!strings.Contains(name, "..")
}

func (b *BrickPlan) validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("brick is missing a name")
	}
	if !SafeName(b.Name) {
		return fmt.Errorf("brick name %q is unsafe for use in file paths", b.Name)
	}
	if strings.TrimSpace(b.Description) == "" {
		return fmt.Errorf("brick %q is missing a description", b.Name)
	}
	if strings.TrimSpace(b.TargetDir) == "" {
		return fmt.Errorf("brick %q is missing a target_directory", b.Name)
	}
	if strings.TrimSpace(b.Kind) == "" {
		return fmt.Errorf("brick %q is missing a kind", b.Name)
	}
	if strings.HasPrefix(b.TargetDir, "/") || strings.Contains(b.TargetDir, "..") {
		return fmt.Errorf("brick %q has an unsafe target_directory %q", b.Name, b.TargetDir)
	}
	return nil
}

// BrickByName returns the named brick plan, if present
func (p *Plan) BrickByName(name string) (*BrickPlan, bool) {
	for i := range p.Bricks {
		if p.Bricks[i].Name == name {
			return &p.Bricks[i], true
		}
	}
	return nil, false
}
