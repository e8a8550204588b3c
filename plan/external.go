package plan

import (
	"path/filepath"

	"github.com/forgepkg/forge/ninja"
	"github.com/forgepkg/forge/resolve"
)

// externalRules are declared at most once per Ninja file, lazily, since
// most projects never pull in a foreign-build-system dependency.
type externalRules struct {
	cmake, autotools bool
}

// planExternalPackage emits the single build step that drives pkg's own
// build system (CMake or Autotools) to produce a static library, treated
// by the rest of the planner exactly like a compile_cxx+archive output:
// its path is threaded into the link step's inputs. The source tree itself
// is the only input, so Ninja's restat (set on both rules) is what keeps a
// no-op reconfigure from forcing a relink — there is no per-file depfile
// for a build this planner does not control the file list of.
func planExternalPackage(w *ninja.Writer, er *externalRules, pkg *resolve.Package, opts Options) (string, error) {
	installDir := filepath.ToSlash(filepath.Join(opts.OutDir, opts.Profile, "external", pkg.Name))
	libPath := filepath.ToSlash(filepath.Join(installDir, "lib", "lib"+pkg.Name+".a"))
	buildDir := filepath.ToSlash(filepath.Join(opts.OutDir, opts.Profile, "external", pkg.Name, "build"))

	buildType := "Release"
	if opts.Profile == "debug" {
		buildType = "Debug"
	}

	switch pkg.External {
	case "cmake":
		if !er.cmake {
			if err := w.Rule("build_cmake",
				"cmake -S $in -B $builddir -DCMAKE_BUILD_TYPE=$buildtype -DCMAKE_INSTALL_PREFIX=$installdir"+
					" && cmake --build $builddir && cmake --install $builddir --prefix $installdir",
				ninja.RuleSet{Description: "Building $in (cmake)", Restat: true},
			); err != nil {
				return "", err
			}
			er.cmake = true
		}
		_, err := w.Build([]string{libPath}, "build_cmake", ninja.BuildSet{
			Inputs: []string{pkg.ExternalDir},
			Variables: map[string]string{
				"builddir":   buildDir,
				"installdir": installDir,
				"buildtype":  buildType,
			},
		})
		return libPath, err

	case "autotools":
		if !er.autotools {
			if err := w.Rule("build_autotools",
				"cd $in && ./configure --prefix=$installdir && $make && $make install",
				ninja.RuleSet{Description: "Building $in (autotools)", Restat: true},
			); err != nil {
				return "", err
			}
			er.autotools = true
		}
		_, err := w.Build([]string{libPath}, "build_autotools", ninja.BuildSet{
			Inputs: []string{pkg.ExternalDir},
			Variables: map[string]string{
				"installdir": installDir,
				"make":       "make",
			},
		})
		return libPath, err
	}

	return "", nil
}
