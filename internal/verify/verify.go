// Package verify confirms that a generated brick actually works: the
// expected files exist, the code is syntactically valid and importable, and
// an optional smoke entry point runs cleanly. Failures always carry a
// diagnostic with enough text to serve as LLM retry feedback; a generic
// failure message would defeat the self-correction loop.
package verify

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"brickyard/internal/brick"
	"brickyard/internal/config"
	"brickyard/internal/log"
)

// Result is the verification outcome for one brick
type Result struct {
	// OK reports whether all checks passed
	OK bool

	// Diagnostic is non-empty whenever OK is false
	Diagnostic string
}

func fail(format string, args ...any) Result {
	return Result{OK: false, Diagnostic: fmt.Sprintf(format, args...)}
}

// Verifier runs the per-brick verification checks
type Verifier struct {
	cfg    config.Config
	logger *log.Logger

	// PythonBin is the interpreter used for python_module bricks
	PythonBin string
}

// New creates a Verifier
func New(cfg config.Config, logger *log.Logger) *Verifier {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Verifier{
		cfg:       cfg,
		logger:    logger.With("component", "verifier"),
		PythonBin: "python3",
	}
}

// Verify runs the checks in order, short-circuiting on the first failure:
// file presence, syntax/import validity, then the optional smoke run.
func (v *Verifier) Verify(ctx context.Context, bp brick.BrickPlan, files []string) Result {
	if len(files) == 0 {
		return fail("brick %s produced no files", bp.Name)
	}

	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return fail("expected file missing: %s", f)
		}
		if info.Size() == 0 {
			return fail("generated file is empty: %s", f)
		}
	}

	if res := v.checkSyntax(ctx, bp, files); !res.OK {
		return res
	}

	if len(bp.Smoke) > 0 {
		if res := v.smokeRun(ctx, bp); !res.OK {
			return res
		}
	}

	return Result{OK: true}
}

// checkSyntax validates the generated code in isolation, dispatching on the
// brick's kind. Unknown kinds get the file checks only.
func (v *Verifier) checkSyntax(ctx context.Context, bp brick.BrickPlan, files []string) Result {
	switch bp.Kind {
	case brick.KindPythonModule:
		return v.checkPython(ctx, files)
	default:
		return Result{OK: true}
	}
}

// checkPython compiles each generated .py file, then imports it in an
// isolated interpreter so module-level failures surface before the smoke run.
func (v *Verifier) checkPython(ctx context.Context, files []string) Result {
	for _, f := range files {
		if filepath.Ext(f) != ".py" {
			continue
		}

		if out, err := v.run(ctx, filepath.Dir(f), v.cfg.SmokeTimeout, v.PythonBin, "-m", "py_compile", f); err != nil {
			return fail("syntax check failed for %s:\n%s", f, diagnosticText(out, err))
		}

		importStmt := fmt.Sprintf("import importlib.util as u\nspec = u.spec_from_file_location(%q, %q)\nm = u.module_from_spec(spec)\nspec.loader.exec_module(m)", moduleName(f), f)
		if out, err := v.run(ctx, filepath.Dir(f), v.cfg.SmokeTimeout, v.PythonBin, "-c", importStmt); err != nil {
			return fail("import check failed for %s:\n%s", f, diagnosticText(out, err))
		}
	}
	return Result{OK: true}
}

// smokeRun executes the brick's smoke entry point from its target directory
func (v *Verifier) smokeRun(ctx context.Context, bp brick.BrickPlan) Result {
	dir := filepath.Join(v.cfg.OutputRoot, bp.TargetDir)
	out, err := v.run(ctx, dir, v.cfg.SmokeTimeout, bp.Smoke[0], bp.Smoke[1:]...)
	if err != nil {
		return fail("smoke run %v failed:\n%s", bp.Smoke, diagnosticText(out, err))
	}
	v.logger.Debug("smoke run passed", "brick", bp.Name)
	return Result{OK: true}
}

// run executes a subprocess with a bounded timeout, capturing combined
// output. On timeout or cancellation the child's whole process group is
// killed, so nothing it spawned outlives the check; WaitDelay guarantees run
// returns even if the kill is briefly ignored.
func (v *Verifier) run(ctx context.Context, dir string, timeout time.Duration, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = 5 * time.Second
	setProcessGroup(cmd)

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return buf.Bytes(), fmt.Errorf("timed out after %s", timeout)
	}
	return buf.Bytes(), err
}

// diagnosticText merges captured output and the process error so the
// diagnostic is never empty.
func diagnosticText(out []byte, err error) string {
	text := strings.TrimSpace(string(out))
	if text == "" {
		return err.Error()
	}
	return text + "\n(" + err.Error() + ")"
}

// moduleName derives an import name from a file path
func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
