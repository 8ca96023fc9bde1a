package brick

import (
	"os"
	"path/filepath"

	"brickyard/internal/errors"
)

// WriteFileAtomic writes data to path via a temp file in the same directory
// and a rename, so a crash or cancellation mid-write never leaves a partial
// file visible at the final path. Parent directories are created as needed.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeDirectoryFailed, "create directory: "+dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "create temp file in "+dir, err)
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
	if err := os.Chmod(tmpName, perm); err != nil {
		return errors.NewFileWriteError(tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return errors.NewFileWriteError(path, err)
	}
	return nil
}
