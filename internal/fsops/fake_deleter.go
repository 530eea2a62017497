package fsops

// FakeDeleter implements Deleter for testing
// Records all delete calls without performing actual deletions
type FakeDeleter struct {
	Calls []string
	Err   error // returned from every Remove when set
}

func (f *FakeDeleter) Remove(path string) error {
	f.Calls = append(f.Calls, "rm:"+path)
	return f.Err
}
