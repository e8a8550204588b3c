package store

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/forgepkg/forge/registry"
)

type fakeClient struct {
	archive []byte
	err     error
	fetches int
}

func (f *fakeClient) Search(ctx context.Context, query string, limit int) ([]registry.SearchResult, error) {
	return nil, nil
}

func (f *fakeClient) Versions(ctx context.Context, name string) ([]string, error) {
	return nil, nil
}

func (f *fakeClient) Fetch(ctx context.Context, name, version string) ([]byte, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.archive, nil
}

func makeTarGz(files map[string]string) []byte {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			panic(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			panic(err)
		}
	}
	tw.Close()
	gz.Close()
	return buf.Bytes()
}

func TestEnsureUnpacksAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	archive := makeTarGz(map[string]string{
		"forge.toml":  "[package]\nname = \"demo\"\nversion = \"1.0.0\"\n",
		"src/main.cc": "int main() {}\n",
	})
	client := &fakeClient{archive: archive}

	path, err := s.Ensure(context.Background(), "demo", "1.0.0", client)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if _, err := os.Stat(filepath.Join(path, "forge.toml")); err != nil {
		t.Errorf("expected forge.toml in %s: %v", path, err)
	}
	if !s.Present("demo", "1.0.0") {
		t.Error("expected Present to report true after Ensure")
	}

	// A second Ensure must not refetch.
	if _, err := s.Ensure(context.Background(), "demo", "1.0.0", client); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if client.fetches != 1 {
		t.Errorf("got %d fetches, want 1", client.fetches)
	}
}

func TestEnsurePropagatesFetchError(t *testing.T) {
	s := New(t.TempDir())
	client := &fakeClient{err: errors.New("network down")}
	if _, err := s.Ensure(context.Background(), "demo", "1.0.0", client); err == nil {
		t.Fatal("expected an error from a failing fetch")
	}
}

func TestExtractFileReadsWithoutUnpacking(t *testing.T) {
	archive := makeTarGz(map[string]string{
		"forge.toml": "[package]\nname = \"demo\"\nversion = \"1.0.0\"\n",
		"src/a.cc":   "x",
	})
	raw, err := ExtractFile(archive, "forge.toml")
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	if string(raw) != "[package]\nname = \"demo\"\nversion = \"1.0.0\"\n" {
		t.Errorf("got %q", raw)
	}
}

func TestExtractFileMissingEntry(t *testing.T) {
	archive := makeTarGz(map[string]string{"a.txt": "x"})
	if _, err := ExtractFile(archive, "forge.toml"); err == nil {
		t.Fatal("expected error for missing entry")
	}
}

func TestUnpackRejectsPathEscape(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	hdr := &tar.Header{Name: "../escape.txt", Mode: 0o644, Size: 1}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}
	tw.Close()
	gz.Close()

	s := New(t.TempDir())
	client := &fakeClient{archive: buf.Bytes()}
	if _, err := s.Ensure(context.Background(), "evil", "1.0.0", client); err == nil {
		t.Fatal("expected an error for an archive entry that escapes the destination")
	}
}
