// Package uploads maps image URLs onto the locally-managed uploads
// directory and deletes the files they reference, never touching anything
// outside that directory
package uploads

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/SHR-HR/DIPLOM-fandom-wiki-warhammer40k-API/internal/safety"
)

// urlPrefix is the public path under which uploaded images are served
const urlPrefix = "/uploads/"

// Resolver maps upload URLs to absolute paths under a fixed root.
// The root is established once at construction and is immutable for the
// lifetime of the process; Resolver is safe for concurrent use.
type Resolver struct {
	root string
}

// NewResolver creates a resolver for the given uploads root.
// The root is made absolute and cleaned once here; callers inject it
// explicitly rather than deriving it from the binary's location.
func NewResolver(root string) (*Resolver, error) {
	r, err := safety.NormalizeRoot(root)
	if err != nil {
		return nil, err
	}
	return &Resolver{root: r}, nil
}

// Root returns the absolute uploads root
func (r *Resolver) Root() string {
	return r.root
}

// Resolve maps a URL to the absolute local path it references, or reports
// false when the URL does not point into the uploads root. Accepted shapes
// are a relative path starting with /uploads/ and an absolute URL of any
// scheme and host whose path component starts with /uploads/. Everything
// else — empty strings, data: URIs, external paths, malformed input — is
// inert; no error is ever surfaced.
func (r *Resolver) Resolve(raw string) (string, bool) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", false
	}

	if strings.HasPrefix(u, urlPrefix) {
		return r.fromRelative(strings.TrimPrefix(u, urlPrefix))
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return "", false
	}
	// Normalize backslashes so Windows-style separators cannot smuggle a
	// different path shape past the prefix check
	p := strings.ReplaceAll(parsed.Path, `\`, "/")
	if !strings.HasPrefix(p, urlPrefix) {
		return "", false
	}
	return r.fromRelative(strings.TrimPrefix(p, urlPrefix))
}

// fromRelative joins the uploads-relative remainder onto the root and
// accepts the result only if the containment guard does
func (r *Resolver) fromRelative(rest string) (string, bool) {
	// Leading separators would make Join treat the remainder as absolute
	rest = strings.TrimLeft(rest, `/\`)
	candidate := filepath.Join(r.root, filepath.FromSlash(rest))
	if !safety.Contains(r.root, candidate) {
		return "", false
	}
	return candidate, true
}
