package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveRuntimePath turns a configured directory into an absolute path.
// Relative paths are anchored at the executable's directory rather than the
// working directory, so logs and static files end up next to the binary no
// matter where it was started from. An empty value falls back to fallback,
// also relative to the binary.
func ResolveRuntimePath(raw, fallback string) string {
	target := strings.TrimSpace(raw)
	if target == "" {
		target = strings.TrimSpace(fallback)
	}
	if target == "" {
		return baseDir()
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Join(baseDir(), target)
}

// baseDir is the directory holding the running binary, following symlinks.
// When the executable cannot be determined (go test, odd platforms) the
// working directory serves instead.
func baseDir() string {
	if exe, err := os.Executable(); err == nil && exe != "" {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil && resolved != "" {
			exe = resolved
		}
		return filepath.Dir(exe)
	}
	if wd, err := os.Getwd(); err == nil && wd != "" {
		return wd
	}
	return "."
}
