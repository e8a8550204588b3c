// Package store is forge's content-addressed source store: the directory
// tree under a project's output root holding every dependency's unpacked
// source, keyed by name and exact version.
package store

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/forgepkg/forge/ferr"
	"github.com/forgepkg/forge/registry"
)

// Store manages the `<root>/src/<name>-<version>/` tree.
type Store struct {
	root string

	mu       sync.Mutex
	inFlight map[string]*sync.Mutex
}

// New returns a Store rooted at root (normally <output-dir>/src).
func New(root string) *Store {
	return &Store{root: root, inFlight: make(map[string]*sync.Mutex)}
}

func key(name, version string) string {
	return name + "-" + version
}

// Dir returns the directory a package would occupy, whether or not it has
// been fetched yet.
func (s *Store) Dir(name, version string) string {
	return filepath.Join(s.root, key(name, version))
}

// Present reports whether name at version has already been unpacked.
func (s *Store) Present(name, version string) bool {
	info, err := os.Stat(s.Dir(name, version))
	return err == nil && info.IsDir()
}

// Ensure fetches and unpacks name at version if it is not already present,
// returning its directory either way. It is idempotent and safe to call
// concurrently, from goroutines in this process or from another forge
// invocation on the same machine: both a per-key in-process mutex and a
// cross-process file lock serialize the unpack, and the unpack itself
// lands in a temporary sibling directory that is renamed into place only
// once fully written, so a reader never observes a partial tree.
func (s *Store) Ensure(ctx context.Context, name, version string, client registry.Client) (string, error) {
	dir := s.Dir(name, version)

	perKey := s.lockInProcess(key(name, version))
	perKey.Lock()
	defer perKey.Unlock()

	if s.Present(name, version) {
		return dir, nil
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", &ferr.SourceUnpackError{Name: name, Version: version, Path: dir, Err: err}
	}

	lockPath := filepath.Join(s.root, "."+key(name, version)+".lock")
	lock, err := lockFile(lockPath)
	if err != nil {
		return "", &ferr.SourceUnpackError{Name: name, Version: version, Path: dir, Err: err}
	}
	defer lock.Close()

	// Another process may have finished unpacking while we waited on the
	// cross-process lock.
	if s.Present(name, version) {
		return dir, nil
	}

	archive, err := client.Fetch(ctx, name, version)
	if err != nil {
		return "", err
	}

	tmp := dir + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return "", &ferr.SourceUnpackError{Name: name, Version: version, Path: dir, Err: err}
	}
	if err := unpackTarGz(tmp, archive); err != nil {
		os.RemoveAll(tmp)
		return "", &ferr.SourceUnpackError{Name: name, Version: version, Path: dir, Err: err}
	}
	if err := os.Rename(tmp, dir); err != nil {
		os.RemoveAll(tmp)
		return "", &ferr.SourceUnpackError{Name: name, Version: version, Path: dir, Err: err}
	}

	return dir, nil
}

func (s *Store) lockInProcess(k string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.inFlight[k]
	if !ok {
		m = &sync.Mutex{}
		s.inFlight[k] = m
	}
	return m
}

// unpackTarGz extracts a gzip-compressed tar archive to dest, which must
// not already exist. It refuses entries that would escape dest.
func unpackTarGz(dest string, archive []byte) error {
	gz, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return fmt.Errorf("not a gzip archive: %w", err)
	}
	defer gz.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target := filepath.Join(dest, hdr.Name)
		if !withinDir(dest, target) {
			return fmt.Errorf("archive entry %q escapes destination", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode&0o777))
			if err != nil {
				return err
			}
			_, err = io.Copy(f, tr)
			closeErr := f.Close()
			if err != nil {
				return err
			}
			if closeErr != nil {
				return closeErr
			}
		case tar.TypeSymlink:
			// Source archives for a build dependency have no legitimate
			// use for symlinks; skip rather than risk an escape.
			continue
		}
	}
}

// ExtractFile reads a single entry named file out of a gzip-compressed tar
// archive without unpacking anything to disk. It is used by the resolver
// to read a candidate version's forge.toml before deciding whether to
// unpack the rest of the archive into the store at all.
func ExtractFile(archive []byte, file string) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return nil, fmt.Errorf("not a gzip archive: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("%s not found in archive", file)
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg || filepath.Clean(hdr.Name) != file {
			continue
		}
		return io.ReadAll(tr)
	}
}

func withinDir(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return rel != ".." && !hasDotDotPrefix(rel)
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
