package uploads

import (
	"path/filepath"
	"testing"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver(t.TempDir())
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}
	return r
}

// TestResolveRelative verifies relative /uploads/ URLs map onto the root
func TestResolveRelative(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		name string
		url  string
		rel  string // expected path relative to root
	}{
		{"simple file", "/uploads/a.jpg", "a.jpg"},
		{"nested file", "/uploads/a/b.png", filepath.Join("a", "b.png")},
		{"double slash", "/uploads//avatar.png", "avatar.png"},
		{"backslash after prefix", `/uploads/\avatar.png`, "avatar.png"},
		{"surrounding whitespace", "  /uploads/a.jpg  ", "a.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.url)
			if !ok {
				t.Fatalf("Resolve(%q) = absent, expected path", tt.url)
			}
			want := filepath.Join(r.Root(), tt.rel)
			if got != want {
				t.Errorf("Resolve(%q) = %s, expected %s", tt.url, got, want)
			}
		})
	}
}

// TestResolveAbsoluteURL verifies any scheme/host is accepted as long as
// the path component starts with /uploads/
func TestResolveAbsoluteURL(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		name string
		url  string
		rel  string
	}{
		{"http localhost", "http://127.0.0.1:8000/uploads/photo.jpg", "photo.jpg"},
		{"https any host", "https://example.com/uploads/avatar.png", "avatar.png"},
		{"nested path", "http://host/uploads/gallery/1.webp", filepath.Join("gallery", "1.webp")},
		{"backslashes in path", `http://host/uploads\sub\x.png`, filepath.Join("sub", "x.png")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.url)
			if !ok {
				t.Fatalf("Resolve(%q) = absent, expected path", tt.url)
			}
			want := filepath.Join(r.Root(), tt.rel)
			if got != want {
				t.Errorf("Resolve(%q) = %s, expected %s", tt.url, got, want)
			}
		})
	}
}

// TestResolveInertInputs verifies everything that is not a local upload
// resolves to absent without erroring
func TestResolveInertInputs(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		name string
		url  string
	}{
		{"empty string", ""},
		{"whitespace only", "   "},
		{"data uri", "data:image/png;base64,iVBORw0KGgo="},
		{"external image", "https://external.com/c.jpg"},
		{"external with uploads elsewhere", "https://cdn.example.com/static/uploads.png"},
		{"path not under uploads", "/static/logo.png"},
		{"uploads without trailing slash", "/uploads"},
		{"uploads mid-path", "/files/uploads/a.jpg"},
		{"malformed url", "http://%zz/uploads/a.jpg"},
		{"plain text", "not a url at all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.url)
			if ok {
				t.Errorf("Resolve(%q) = %s, expected absent", tt.url, got)
			}
			if got != "" {
				t.Errorf("Resolve(%q) returned non-empty path %q with ok=false", tt.url, got)
			}
		})
	}
}

// TestResolveTraversalBlocked verifies traversal attempts never yield a
// path outside the root
func TestResolveTraversalBlocked(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		name string
		url  string
	}{
		{"single dotdot", "/uploads/../secret.txt"},
		{"deep dotdot", "/uploads/../../etc/passwd"},
		{"dotdot in middle", "/uploads/a/../../../etc/passwd"},
		{"absolute url dotdot", "http://host/uploads/../config.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.url)
			if ok {
				t.Errorf("Resolve(%q) = %s, expected absent (traversal)", tt.url, got)
			}
		})
	}
}

// TestResolveRoundTrip verifies the last segments of a resolved path match
// the URL remainder
func TestResolveRoundTrip(t *testing.T) {
	r := newTestResolver(t)

	got, ok := r.Resolve("/uploads/a/b.png")
	if !ok {
		t.Fatal("Resolve(/uploads/a/b.png) = absent, expected path")
	}
	dir, file := filepath.Split(got)
	if file != "b.png" || filepath.Base(filepath.Clean(dir)) != "a" {
		t.Errorf("Resolve round-trip: got %s, expected .../a/b.png", got)
	}
}

// TestNewResolverRejectsEmptyRoot verifies constructor validation
func TestNewResolverRejectsEmptyRoot(t *testing.T) {
	if _, err := NewResolver(""); err == nil {
		t.Error("NewResolver(\"\") expected error, got nil")
	}
	if _, err := NewResolver("   "); err == nil {
		t.Error("NewResolver(whitespace) expected error, got nil")
	}
}
