package brick

import (
	"fmt"
	"os"

	"github.com/zeebo/blake3"

	"brickyard/internal/errors"
)

// HashContent computes the blake3 hash of a document's content
func HashContent(content []byte) string {
	hasher := blake3.New()
	_, _ = hasher.Write(content)
	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// RefForFile builds a DocumentRef for the file at path, pinning its current
// content hash. Contract and spec documents are immutable once referenced by
// a plan; the ref detects out-of-band edits.
func RefForFile(path string) (DocumentRef, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DocumentRef{}, errors.New(errors.ErrCodeFileNotFound, fmt.Sprintf("document not found: %s", path))
		}
		return DocumentRef{}, errors.Wrap(errors.ErrCodeFileReadFailed, fmt.Sprintf("read document: %s", path), err)
	}
	return DocumentRef{Path: path, Hash: HashContent(content)}, nil
}

// Verify re-hashes the referenced file and reports whether it still matches
func (r DocumentRef) Verify() error {
	current, err := RefForFile(r.Path)
	if err != nil {
		return err
	}
	if current.Hash != r.Hash {
		return errors.New(errors.ErrCodeFileReadFailed,
			fmt.Sprintf("document %s changed since the plan referenced it (hash mismatch)", r.Path)).
			WithSuggestion("Regenerate the plan; plans are regenerated, never patched")
	}
	return nil
}
