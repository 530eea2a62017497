package fsops

// Deleter abstracts the filesystem delete operation
// Enables mocking in tests to prove dry-run never deletes
type Deleter interface {
	Remove(path string) error
}
