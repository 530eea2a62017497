package safety

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidRoot = errors.New("invalid uploads root")

// NormalizeRoot converts a configured root to absolute, cleaned form
func NormalizeRoot(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", ErrInvalidRoot
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", ErrInvalidRoot
	}
	return filepath.Clean(abs), nil
}

// Contains reports whether path is root itself or a descendant of root.
// This is the single security boundary for all delete operations: a path
// must pass here before it may be handed to the deleter.
//
// The check is lexical first (Clean + prefix), then canonical: when the
// path exists on disk, symlinks on both sides are resolved and the check
// is repeated on the canonical forms. A path that does not exist is judged
// on the lexical check alone, so candidates for already-removed files are
// still recognized. Any other canonicalization failure (cycles, permission
// errors, unresolvable root) is treated as "not contained" — fail closed,
// never fail open.
func Contains(root, path string) bool {
	p := filepath.Clean(path)
	r := filepath.Clean(root)
	if !filepath.IsAbs(p) || !filepath.IsAbs(r) {
		return false
	}
	if !HasPathPrefix(p, r) {
		return false
	}

	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		if os.IsNotExist(err) {
			// Lexical check already passed; the existence check and the
			// delete itself tolerate a missing file.
			return true
		}
		return false
	}
	resolvedRoot, err := filepath.EvalSymlinks(r)
	if err != nil {
		return false
	}
	return HasPathPrefix(filepath.Clean(resolved), filepath.Clean(resolvedRoot))
}

// HasPathPrefix checks if path equals prefix or lies under it as a
// directory boundary (a prefix match on raw strings is not enough:
// /data/uploadsX must not match /data/uploads)
func HasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)

	if prefix == string(os.PathSeparator) {
		return true
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+string(os.PathSeparator))
}
