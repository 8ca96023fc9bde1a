package brick

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"brickyard/internal/errors"
)

// Store persists plans on disk, one JSON document per module name. It is the
// sole reader/writer of the plan artifact. Saves are atomic
// (write-temp-then-rename) so a crash mid-write never leaves a corrupt or
// half-written plan visible.
type Store struct {
	plansDir string
}

// NewStore creates a Store rooted at plansDir
func NewStore(plansDir string) *Store {
	return &Store{plansDir: plansDir}
}

// Path returns the on-disk location for a module's plan
func (s *Store) Path(moduleName string) string {
	return filepath.Join(s.plansDir, moduleName+".json")
}

// Save serializes the plan to its canonical location. Exactly one current
// plan exists per module name; re-saving overwrites wholesale. Regeneration
// replaces, never patches.
func (s *Store) Save(p *Plan) error {
	if p == nil {
		return errors.New(errors.ErrCodePlanInvalid, "cannot save a nil plan")
	}
	if err := p.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(s.plansDir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeDirectoryFailed, fmt.Sprintf("create plans directory: %s", s.plansDir), err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "marshal plan", err)
	}

	// Stage in the same directory so the rename is atomic on the filesystem.
	tmp, err := os.CreateTemp(s.plansDir, "."+p.ModuleName+"-*.tmp")
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "create temp plan file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.NewFileWriteError(tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.NewFileWriteError(tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewFileWriteError(tmpName, err)
	}

	if err := os.Rename(tmpName, s.Path(p.ModuleName)); err != nil {
		return errors.NewFileWriteError(s.Path(p.ModuleName), err)
	}
	return nil
}

// Load deserializes the plan for moduleName. A malformed document fails with
// a PLAN-002 error, never a silent empty plan.
func (s *Store) Load(moduleName string) (*Plan, error) {
	// Plan validation rejects unsafe names on save; this guards the lookup
	// side against names that would resolve outside the plans directory.
	if !SafeName(moduleName) {
		return nil, errors.New(errors.ErrCodePlanInvalid,
			fmt.Sprintf("module name %q is unsafe for use in file paths", moduleName))
	}

	data, err := os.ReadFile(s.Path(moduleName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewPlanNotFoundError(moduleName)
		}
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, fmt.Sprintf("read plan for module: %s", moduleName), err)
	}

	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.NewPlanCorruptError(moduleName, err)
	}
	if err := p.Validate(); err != nil {
		return nil, errors.NewPlanCorruptError(moduleName, err)
	}
	return &p, nil
}

// Exists reports whether a plan is stored for moduleName
func (s *Store) Exists(moduleName string) bool {
	if !SafeName(moduleName) {
		return false
	}
	_, err := os.Stat(s.Path(moduleName))
	return err == nil
}

// Delete removes the stored plan for moduleName, if any
func (s *Store) Delete(moduleName string) error {
	if !SafeName(moduleName) {
		return errors.New(errors.ErrCodePlanInvalid,
			fmt.Sprintf("module name %q is unsafe for use in file paths", moduleName))
	}
	if err := os.Remove(s.Path(moduleName)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, fmt.Sprintf("delete plan for module: %s", moduleName), err)
	}
	return nil
}

// List returns the module names with stored plans
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.plansDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, fmt.Sprintf("read plans directory: %s", s.plansDir), err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".json"))
	}
	return names, nil
}
