package plan

import (
	"os"
	"path/filepath"
	"sort"
)

// sourceExtensions is the fixed set of C/C++ extensions the planner
// compiles. Headers are included so they participate in depfile-driven
// rebuilds even though they never become their own compile_cxx build.
var sourceExtensions = map[string]bool{
	".c":    true,
	".c++":  true,
	".cc":   true,
	".cpp":  true,
	".cu":   true,
	".cuh":  true,
	".cxx":  true,
	".h":    true,
	".h++":  true,
	".hh":   true,
	".hpp":  true,
	".hxx":  true,
	".ixx":  true,
	".cppm": true,
}

// excludedDirNames never get recursed into, named relative to a package
// source root.
func excludedDirNames(outDir string) map[string]bool {
	return map[string]bool{
		outDir:              true,
		"build":             true,
		"cmake-build-debug": true,
	}
}

// maxGlobDepth bounds recursion into pathologically deep trees even when
// no cycle exists.
const maxGlobDepth = 64

// EnumerateSources walks root and returns every file relative path (slash
// separated, relative to root) with one of sourceExtensions, sorted
// lexicographically for deterministic planner output. It follows
// symlinked directories but guards against symlink loops by tracking the
// canonical (symlink-resolved) path of every directory visited; a
// directory whose canonical form has already been seen is skipped rather
// than re-walked.
func EnumerateSources(root, outDir string) ([]string, error) {
	excluded := excludedDirNames(outDir)
	visited := make(map[string]bool)

	var out []string
	var walk func(dir, relPrefix string, depth int) error
	walk = func(dir, relPrefix string, depth int) error {
		if depth > maxGlobDepth {
			return nil
		}
		canon, err := filepath.EvalSymlinks(dir)
		if err != nil {
			canon = dir
		}
		if visited[canon] {
			return nil
		}
		visited[canon] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			name := e.Name()
			if name == "" || name[0] == '.' {
				continue
			}
			full := filepath.Join(dir, name)
			rel := filepath.Join(relPrefix, name)

			info, err := os.Stat(full)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if excluded[name] {
					continue
				}
				if err := walk(full, rel, depth+1); err != nil {
					return err
				}
				continue
			}
			if sourceExtensions[filepath.Ext(name)] {
				out = append(out, filepath.ToSlash(rel))
			}
		}
		return nil
	}

	if err := walk(root, "", 0); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// IsCompilable reports whether rel (a source-relative path returned by
// EnumerateSources) produces its own compile_cxx build, as opposed to a
// header that only participates via depfiles.
func IsCompilable(rel string) bool {
	switch filepath.Ext(rel) {
	case ".c", ".c++", ".cc", ".cpp", ".cu", ".cxx", ".cppm":
		return true
	default:
		return false
	}
}
