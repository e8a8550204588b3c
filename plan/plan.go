// Package plan turns a resolved dependency graph and a host toolchain
// descriptor into a Ninja build graph: one compile_cxx build per source
// file, one archive build per library, and a link_exe build for the root
// executable.
package plan

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/forgepkg/forge/ferr"
	"github.com/forgepkg/forge/ninja"
	"github.com/forgepkg/forge/resolve"
)

// Toolchain names the compiler, archiver, and default flags used to
// generate the three build rules. Plan does not read the environment: the
// driver resolves the CXX, AR, LDFLAGS and CXXFLAGS fallbacks before calling
// Plan. An empty Cxx or Ar leaves an undeclared $cxx or $ar token in the
// rule commands.
type Toolchain struct {
	Cxx      string
	Ar       string
	LDFlags  []string
	CxxFlags []string
}

// Options configures one Plan invocation.
type Options struct {
	Profile   string // "debug" or "release"
	OutDir    string // output root, relative to the project directory
	RootSrc   string // root package's own source directory
	Toolchain Toolchain
	Libs      []string // -l references from manifests, passed to link_exe
}

// mainBasenames are the conventional entry-point file names that mark a
// package as producing an executable rather than a library; forge.toml
// carries no explicit binary/library distinction, so this mirrors the
// convention most C++ build systems already default to.
var mainBasenames = map[string]bool{
	"main.c": true, "main.cc": true, "main.cpp": true,
	"main.cxx": true, "main.c++": true,
}

// Plan emits a complete Ninja build graph for g into w.
func Plan(g *resolve.Graph, rootName string, opts Options) (*ninja.Writer, error) {
	w := ninja.NewWriter()

	if err := declareRules(w, opts.Toolchain); err != nil {
		return nil, err
	}

	order, err := g.TopoOrder()
	if err != nil {
		return nil, err
	}

	objectsByPkg := make(map[string][]string)
	hasMainByPkg := make(map[string]bool)
	externalLibsByPkg := make(map[string]string)
	er := &externalRules{}

	for _, pkg := range order {
		if pkg.External != "" {
			libPath, err := planExternalPackage(w, er, pkg, opts)
			if err != nil {
				return nil, err
			}
			externalLibsByPkg[pkg.Name] = libPath
			continue
		}

		root := sourceRootOf(pkg, rootName, opts)
		sources, err := EnumerateSources(root, opts.OutDir)
		if err != nil {
			return nil, &ferr.SourceUnpackError{Name: pkg.Name, Version: pkg.Version, Path: root, Err: err}
		}

		includes := transitiveIncludes(g, pkg.Name, rootName, opts)
		cxxflags := composeCxxFlags(opts.Toolchain.CxxFlags, pkg, includes)

		var objects []string
		for _, rel := range sources {
			if !IsCompilable(rel) {
				continue
			}
			if mainBasenames[strings.ToLower(filepath.Base(rel))] {
				hasMainByPkg[pkg.Name] = true
			}

			in := filepath.ToSlash(filepath.Join(root, rel))
			out := objectPath(opts.OutDir, opts.Profile, pkg, rel)

			outs, err := w.Build([]string{out}, "compile_cxx", ninja.BuildSet{
				Inputs:    []string{in},
				Variables: map[string]string{"cxxflags": strings.Join(cxxflags, " ")},
			})
			if err != nil {
				return nil, err
			}
			objects = append(objects, outs...)
		}
		objectsByPkg[pkg.Name] = objects
	}

	rootObjects := objectsByPkg[rootName]
	var archives []string
	for _, pkg := range order {
		if pkg.Name == rootName {
			continue
		}
		if lib, ok := externalLibsByPkg[pkg.Name]; ok {
			archives = append(archives, lib)
			continue
		}
		objs := objectsByPkg[pkg.Name]
		if len(objs) == 0 {
			continue
		}
		archivePath := filepath.ToSlash(filepath.Join(opts.OutDir, opts.Profile, "lib"+pkg.Name+".a"))
		outs, err := w.Build([]string{archivePath}, "archive", ninja.BuildSet{Inputs: objs})
		if err != nil {
			return nil, err
		}
		archives = append(archives, outs...)
	}

	var defaultTarget string
	if hasMainByPkg[rootName] {
		exePath := filepath.ToSlash(filepath.Join(opts.OutDir, opts.Profile, rootName))
		// Dependency archives are linked in reverse topological order so each
		// archive precedes the archives it depends on, which the linker then
		// searches for the symbols it still needs.
		reversed := make([]string, len(archives))
		for i, a := range archives {
			reversed[len(archives)-1-i] = a
		}
		inputs := append(append([]string(nil), rootObjects...), reversed...)
		_, err := w.Build([]string{exePath}, "link_exe", ninja.BuildSet{
			Inputs: inputs,
			Variables: map[string]string{
				"ldflags": strings.Join(opts.Toolchain.LDFlags, " "),
				"libs":    strings.Join(opts.Libs, " "),
			},
		})
		if err != nil {
			return nil, err
		}
		defaultTarget = exePath
	} else if len(rootObjects) > 0 {
		archivePath := filepath.ToSlash(filepath.Join(opts.OutDir, opts.Profile, "lib"+rootName+".a"))
		_, err := w.Build([]string{archivePath}, "archive", ninja.BuildSet{Inputs: rootObjects})
		if err != nil {
			return nil, err
		}
		defaultTarget = archivePath
	}

	if defaultTarget != "" {
		if err := w.Default([]string{defaultTarget}); err != nil {
			return nil, err
		}
	}

	return w, nil
}

func declareRules(w *ninja.Writer, tc Toolchain) error {
	cxx := orDefault(tc.Cxx, "$cxx")
	ar := orDefault(tc.Ar, "$ar")

	if err := w.Rule("compile_cxx", fmt.Sprintf("%s -MD -MF $out.d $cxxflags -c $in -o $out", cxx), ninja.RuleSet{
		Depfile:     "$out.d",
		Deps:        "gcc",
		Description: "Compiling $in",
	}); err != nil {
		return err
	}
	if err := w.Rule("archive", fmt.Sprintf("%s rcs $out $in", ar), ninja.RuleSet{
		Description: "Archiving $out",
	}); err != nil {
		return err
	}
	if err := w.Rule("link_exe", fmt.Sprintf("%s $ldflags -o $out $in $libs", cxx), ninja.RuleSet{
		Description: "Linking $out",
	}); err != nil {
		return err
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func sourceRootOf(pkg *resolve.Package, rootName string, opts Options) string {
	if pkg.Name == rootName {
		return opts.RootSrc
	}
	return filepath.Join(opts.OutDir, "src", pkg.Name+"-"+pkg.Version)
}

func objectPath(outDir, profile string, pkg *resolve.Package, rel string) string {
	return filepath.ToSlash(filepath.Join(outDir, profile, pkg.Name+"-"+pkg.Version, rel+".o"))
}

func transitiveIncludes(g *resolve.Graph, name, rootName string, opts Options) []string {
	seen := map[string]bool{name: true}
	var order []string
	var walk func(n string)
	walk = func(n string) {
		for _, c := range g.Children(n) {
			if seen[c] {
				continue
			}
			seen[c] = true
			order = append(order, c)
			walk(c)
		}
	}
	walk(name)

	includes := []string{"-I" + sourceRootOfName(g, name, rootName, opts)}
	for _, n := range order {
		includes = append(includes, "-I"+sourceRootOfName(g, n, rootName, opts))
	}
	return includes
}

func sourceRootOfName(g *resolve.Graph, name, rootName string, opts Options) string {
	pkg, ok := g.Package(name)
	if !ok {
		return ""
	}
	if pkg.External != "" {
		return filepath.ToSlash(filepath.Join(opts.OutDir, opts.Profile, "external", pkg.Name, "include"))
	}
	return sourceRootOf(pkg, rootName, opts)
}

func composeCxxFlags(base []string, pkg *resolve.Package, includes []string) []string {
	var flags []string
	flags = append(flags, base...)
	if pkg.Manifest != nil {
		flags = append(flags, pkg.Manifest.CxxFlags...)
		for _, d := range pkg.Manifest.Defines {
			flags = append(flags, "-D"+d)
		}
	}
	flags = append(flags, includes...)
	return flags
}
