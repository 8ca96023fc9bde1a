package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brickyard/internal/brick"
	"brickyard/internal/config"
	"brickyard/internal/log"
	"brickyard/internal/provider"
	"brickyard/internal/verify"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.OutputRoot = t.TempDir()
	cfg.RetryDelay = 0
	return cfg
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Level: log.LevelError, Format: log.FormatJSON, Output: &bytes.Buffer{}})
}

func newTestExecutor(t *testing.T, completer provider.Completer, cfg config.Config) *Executor {
	t.Helper()
	logger := quietLogger()
	return New(completer, verify.New(cfg, logger), cfg, logger)
}

func testBrick() brick.BrickPlan {
	return brick.BrickPlan{
		Name:        "core",
		Description: "greeting core logic",
		TargetDir:   "greeter/core",
		Kind:        "text",
		Exports:     []string{"greet"},
	}
}

func filesJSON(t *testing.T, files map[string]string) string {
	t.Helper()
	doc := filesDocument{}
	for path, content := range files {
		doc.Files = append(doc.Files, generatedFile{Path: path, Content: content})
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(data)
}

func TestExecute_SuccessFirstAttempt(t *testing.T) {
	cfg := testConfig(t)
	completer := provider.Respond(filesJSON(t, map[string]string{
		"core.txt": "greet: hello",
	}))
	e := newTestExecutor(t, completer, cfg)

	res := e.Execute(context.Background(), testBrick(), "# Contract", "# Spec")

	assert.Equal(t, brick.StatusSuccess, res.Status)
	assert.Equal(t, 1, res.Attempts)
	require.Len(t, res.GeneratedFiles, 1)

	content, err := os.ReadFile(res.GeneratedFiles[0])
	require.NoError(t, err)
	assert.Equal(t, "greet: hello", string(content))
	assert.Equal(t, filepath.Join(cfg.OutputRoot, "greeter/core", "core.txt"), res.GeneratedFiles[0])
}

func TestExecute_PromptCarriesContractAndSpec(t *testing.T) {
	cfg := testConfig(t)
	completer := provider.Respond(filesJSON(t, map[string]string{"core.txt": "x"}))
	e := newTestExecutor(t, completer, cfg)

	e.Execute(context.Background(), testBrick(), "CONTRACT-TEXT-MARKER", "SPEC-TEXT-MARKER")

	prompt := completer.LastPrompt()
	assert.Contains(t, prompt, "CONTRACT-TEXT-MARKER")
	assert.Contains(t, prompt, "SPEC-TEXT-MARKER")
	assert.Contains(t, prompt, "Required exports: greet")
	// Document text rides inside untrusted-content markers.
	assert.Contains(t, prompt, "<<<UNTRUSTED-CONTENT>>>")
}

func TestExecute_VerifierDiagnosticFeedsRetry(t *testing.T) {
	cfg := testConfig(t)
	bp := testBrick()
	bp.Smoke = []string{"sh", "-c", `grep -q greet core.txt || { echo "missing required export greet" >&2; exit 1; }`}

	// First attempt fails the smoke run, second passes.
	completer := provider.Respond(
		filesJSON(t, map[string]string{"core.txt": "shout: HELLO"}),
		filesJSON(t, map[string]string{"core.txt": "greet: hello"}),
	)
	e := newTestExecutor(t, completer, cfg)

	res := e.Execute(context.Background(), bp, "# Contract", "# Spec")

	assert.Equal(t, brick.StatusSuccess, res.Status)
	assert.Equal(t, 2, res.Attempts)

	// The second prompt carries the first attempt's verification failure,
	// including the diagnostic naming the missing symbol.
	prompts := completer.Prompts()
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[1], "previous response could not be used")
	assert.Contains(t, prompts[1], "verification failed")
	assert.Contains(t, prompts[1], "missing required export greet")
}

func TestExecute_MalformedPayloadRetried(t *testing.T) {
	cfg := testConfig(t)
	completer := provider.Respond(
		"I cannot produce that code.",
		filesJSON(t, map[string]string{"core.txt": "greet: hello"}),
	)
	e := newTestExecutor(t, completer, cfg)

	res := e.Execute(context.Background(), testBrick(), "# Contract", "# Spec")
	assert.Equal(t, brick.StatusSuccess, res.Status)
	assert.Equal(t, 2, res.Attempts)
}

func TestExecute_ExhaustionIsFailed(t *testing.T) {
	cfg := testConfig(t)
	cfg.BrickMaxAttempts = 2
	completer := provider.Respond("garbage", "garbage")
	e := newTestExecutor(t, completer, cfg)

	res := e.Execute(context.Background(), testBrick(), "# Contract", "# Spec")

	assert.Equal(t, brick.StatusFailed, res.Status)
	assert.Equal(t, 2, res.Attempts)
	assert.NotEmpty(t, res.ErrorSummary)
	assert.Equal(t, 2, completer.Calls(), "attempt limit must bound provider calls")
}

func TestExecute_RejectsEscapingPaths(t *testing.T) {
	cfg := testConfig(t)
	cfg.BrickMaxAttempts = 1
	completer := provider.Respond(filesJSON(t, map[string]string{
		"../outside.txt": "evil",
	}))
	e := newTestExecutor(t, completer, cfg)

	res := e.Execute(context.Background(), testBrick(), "# Contract", "# Spec")

	assert.Equal(t, brick.StatusFailed, res.Status)
	assert.Contains(t, res.ErrorSummary, "escapes the target directory")
	assert.NoFileExists(t, filepath.Join(cfg.OutputRoot, "greeter", "outside.txt"))
}

func TestExecute_RejectsEmptyFileContent(t *testing.T) {
	cfg := testConfig(t)
	cfg.BrickMaxAttempts = 1
	completer := provider.Respond(filesJSON(t, map[string]string{
		"core.txt": "   \n",
	}))
	e := newTestExecutor(t, completer, cfg)

	res := e.Execute(context.Background(), testBrick(), "# Contract", "# Spec")
	assert.Equal(t, brick.StatusFailed, res.Status)
	assert.Contains(t, res.ErrorSummary, "is empty")
}

func TestExecute_NestedGeneratedPaths(t *testing.T) {
	cfg := testConfig(t)
	completer := provider.Respond(filesJSON(t, map[string]string{
		"pkg/util.txt": "helper",
		"core.txt":     "greet: hello",
	}))
	e := newTestExecutor(t, completer, cfg)

	res := e.Execute(context.Background(), testBrick(), "# Contract", "# Spec")
	require.Equal(t, brick.StatusSuccess, res.Status)
	assert.FileExists(t, filepath.Join(cfg.OutputRoot, "greeter/core/pkg/util.txt"))
}

func TestExecute_ProviderExhaustionIsFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.BrickMaxAttempts = 3
	completer := provider.Respond() // unavailable on every call
	e := newTestExecutor(t, completer, cfg)

	res := e.Execute(context.Background(), testBrick(), "# Contract", "# Spec")

	assert.Equal(t, brick.StatusFailed, res.Status)
	assert.Equal(t, 1, res.Attempts, "provider unavailability must not be retried")
}
