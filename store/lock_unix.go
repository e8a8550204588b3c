//go:build unix

package store

import (
	"os"

	"golang.org/x/sys/unix"
)

// fileLock is an advisory, exclusive lock on a single file, released by
// Close. It serializes ensure() across process boundaries: two concurrent
// `forge build` invocations targeting the same (name, version) must not
// both unpack at once.
type fileLock struct {
	f *os.File
}

// lockFile blocks until it holds an exclusive lock on path, creating the
// file if necessary.
func lockFile(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, err
	}
	return &fileLock{f: f}, nil
}

func (l *fileLock) Close() error {
	defer l.f.Close()
	return unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
}
