package process

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cli/safeexec"
)

// ErrExecutableNotFound indicates none of the candidate executables exist on PATH.
var ErrExecutableNotFound = errors.New("executable not found")

// LookupExecutable resolves the first candidate name found on PATH to an
// absolute path. Lookup goes through safeexec, which refuses to resolve
// executables from the current directory on Windows-like PATH semantics.
func LookupExecutable(ctx context.Context, candidates []string) (string, error) {
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		path, err := safeexec.LookPath(candidate)
		if err != nil {
			continue
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolve absolute path for %s: %w", candidate, err)
		}

		return absPath, nil
	}

	return "", fmt.Errorf("%w: tried %v", ErrExecutableNotFound, candidates)
}
