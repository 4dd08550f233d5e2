package fsops

import "os"

// FaultyFS wraps another FS and fails selected operations. It is used to
// exercise error paths that are hard to provoke on a real filesystem.
type FaultyFS struct {
	FS

	MkdirErr  error
	CreateErr error
	ReadErr   error
	WriteErr  error
}

// NewFaultyFS wraps inner. With no errors set it behaves exactly like inner.
func NewFaultyFS(inner FS) *FaultyFS {
	return &FaultyFS{FS: inner}
}

// MkdirAll fails with MkdirErr when set.
func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error {
	if f.MkdirErr != nil {
		return f.MkdirErr
	}
	return f.FS.MkdirAll(path, perm)
}

// CreateExclusive fails with CreateErr when set.
func (f *FaultyFS) CreateExclusive(path string, data []byte, perm os.FileMode) (bool, error) {
	if f.CreateErr != nil {
		return false, f.CreateErr
	}
	return f.FS.CreateExclusive(path, data, perm)
}

// ReadFile fails with ReadErr when set.
func (f *FaultyFS) ReadFile(path string) ([]byte, error) {
	if f.ReadErr != nil {
		return nil, f.ReadErr
	}
	return f.FS.ReadFile(path)
}

// AtomicWrite fails with WriteErr when set.
func (f *FaultyFS) AtomicWrite(path string, data []byte, perm os.FileMode) error {
	if f.WriteErr != nil {
		return f.WriteErr
	}
	return f.FS.AtomicWrite(path, data, perm)
}
