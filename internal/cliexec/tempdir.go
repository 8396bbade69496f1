package cliexec

import (
	"fmt"
	"os"
	"path/filepath"
)

// ScopedDir creates a fresh temp directory for a single command invocation
// (request_json_stdin payloads, prompt.txt staging files) and returns a
// cleanup func the caller must run once the command has finished, win or
// lose. The directory is namespaced under the OS temp root so concurrent
// invocations never collide.
func ScopedDir(prefix string) (dir string, cleanup func(), err error) {
	dir, err = os.MkdirTemp("", "cligateway-"+prefix+"-*")
	if err != nil {
		return "", nil, fmt.Errorf("creating scoped temp dir: %w", err)
	}
	cleanup = func() {
		_ = os.RemoveAll(dir)
	}
	return dir, cleanup, nil
}

// WriteFile writes contents into a named file inside dir, creating parent
// directories as needed. Used for prompt.txt / request.json staging files
// ahead of a command's invocation.
func WriteFile(dir, name string, contents []byte) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("preparing %s: %w", path, err)
	}
	if err := os.WriteFile(path, contents, 0o600); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
