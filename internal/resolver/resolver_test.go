package resolver

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
	"brickyard/internal/errors"
	"brickyard/internal/log"
	"brickyard/internal/provider"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RetryDelay = 0
	return cfg
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Level: log.LevelError, Format: log.FormatJSON, Output: &bytes.Buffer{}})
}

func testBrick(t *testing.T) brick.BrickPlan {
	t.Helper()
	dir := t.TempDir()
	return brick.BrickPlan{
		Name:         "core",
		Description:  "greeting core logic",
		ContractPath: filepath.Join(dir, "core.contract.md"),
		SpecPath:     filepath.Join(dir, "core.spec.md"),
		TargetDir:    "greeter/core",
		Kind:         brick.KindPythonModule,
		Exports:      []string{"greet"},
	}
}

func synthesisJSON(t *testing.T, contract, spec string, exports []string) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"contract": contract,
		"spec":     spec,
		"exports":  exports,
	})
	require.NoError(t, err)
	return string(data)
}

func TestResolve_ExistingDocumentsUntouched(t *testing.T) {
	bp := testBrick(t)
	require.NoError(t, os.WriteFile(bp.ContractPath, []byte("# Contract: greet"), 0o644))
	require.NoError(t, os.WriteFile(bp.SpecPath, []byte("# Spec"), 0o644))

	completer := provider.Respond() // any call would fail
	r := New(completer, testConfig(t), quietLogger())

	docs, err := r.Resolve(context.Background(), bp)
	require.NoError(t, err)

	assert.Equal(t, bp.ContractPath, docs.Contract.Path)
	assert.NotEmpty(t, docs.Contract.Hash)
	assert.Equal(t, 0, completer.Calls(), "existing documents must not trigger synthesis")
}

func TestResolve_SynthesizesMissingDocuments(t *testing.T) {
	bp := testBrick(t)
	completer := provider.Respond(
		"```json\n" + synthesisJSON(t, "# Contract\nExports: greet", "# Spec\nreturn a greeting", []string{"greet"}) + "\n```")
	r := New(completer, testConfig(t), quietLogger())

	docs, err := r.Resolve(context.Background(), bp)
	require.NoError(t, err)

	contract, err := os.ReadFile(bp.ContractPath)
	require.NoError(t, err)
	assert.Contains(t, string(contract), "greet")

	spec, err := os.ReadFile(bp.SpecPath)
	require.NoError(t, err)
	assert.Contains(t, string(spec), "greeting")

	require.NoError(t, docs.Contract.Verify())
	require.NoError(t, docs.Spec.Verify())
}

func TestResolve_RejectsContractMissingRequiredExport(t *testing.T) {
	bp := testBrick(t) // requires export "greet"

	// First attempt omits the required export; second fixes it.
	completer := provider.Respond(
		synthesisJSON(t, "# Contract\nExports: shout", "# Spec", []string{"shout"}),
		synthesisJSON(t, "# Contract\nExports: greet", "# Spec", []string{"greet"}),
	)
	r := New(completer, testConfig(t), quietLogger())

	_, err := r.Resolve(context.Background(), bp)
	require.NoError(t, err)
	assert.Equal(t, 2, completer.Calls())

	// The retry prompt names the missing symbol.
	prompts := completer.Prompts()
	assert.Contains(t, prompts[1], `omits required export "greet"`)
}

func TestResolve_RejectsEmptyExports(t *testing.T) {
	bp := testBrick(t)
	bp.Exports = nil

	responses := make([]string, 3)
	for i := range responses {
		responses[i] = synthesisJSON(t, "# Contract", "# Spec", nil)
	}
	completer := provider.Respond(responses...)
	r := New(completer, testConfig(t), quietLogger())

	_, err := r.Resolve(context.Background(), bp)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSpecSynthesis))
}

func TestResolve_ExhaustionIsSpecSynthesisError(t *testing.T) {
	bp := testBrick(t)
	completer := provider.Respond("garbage", "more garbage", "still garbage")
	r := New(completer, testConfig(t), quietLogger())

	_, err := r.Resolve(context.Background(), bp)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSpecSynthesis))

	// No partial documents left behind.
	assert.NoFileExists(t, bp.ContractPath)
	assert.NoFileExists(t, bp.SpecPath)
}

func TestResolve_ContractMustMentionEveryExport(t *testing.T) {
	bp := testBrick(t)
	completer := provider.Respond(
		synthesisJSON(t, "# Contract with no symbol names", "# Spec", []string{"greet"}),
		synthesisJSON(t, "# Contract\ngreet(name) -> str", "# Spec", []string{"greet"}),
	)
	r := New(completer, testConfig(t), quietLogger())

	_, err := r.Resolve(context.Background(), bp)
	require.NoError(t, err)
	assert.Equal(t, 2, completer.Calls())
}
