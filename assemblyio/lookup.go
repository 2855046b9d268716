// Package assemblyio loads assembly files off disk into a
// typesystem.AssemblyManager: locating them under the standard library
// directory or an explicit path, memory-mapping the bytes, and
// decoding the type, field, method and bytecode records binaryfmt's
// codec primitives describe (§4.1, §4.3, §6).
package assemblyio

import (
	"os"
	"path/filepath"

	"github.com/PuraLingua/pura-lingua-sub001/config"
)

// assemblyFileExt is the on-disk extension this runtime's assemblies
// use, named after the VM itself the way a `.dll`/`.so` names its
// host platform.
const assemblyFileExt = ".plasm"

// StdlibDir resolves the standard library directory by appending
// "Library" to PURALINGUA_HOME, matching
// original_source/global/src/path_searcher.rs's get_stdlib_dir exactly
// (§6).
func StdlibDir() (string, error) {
	home, ok := os.LookupEnv("PURALINGUA_HOME")
	if !ok || home == "" {
		return "", &config.Error{Kind: config.MissingEnvVar, Message: "PURALINGUA_HOME is not set"}
	}

	dir := filepath.Join(home, "Library")
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", &config.Error{Kind: config.MissingStdlibDir, Message: dir}
	}
	return dir, nil
}

// DefaultLookuper builds the AssemblyLookuper an AssemblyManager
// consults when a TypeRef names an assembly nothing has explicitly
// loaded yet: it looks for "<name>.plasm" directly under dir, the same
// flat layout get_stdlib_dir's caller expects from PURALINGUA_HOME's
// Library directory.
func DefaultLookuper(dir string) config.AssemblyLookuper {
	return func(name string) (string, bool) {
		path := filepath.Join(dir, name+assemblyFileExt)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
		return "", false
	}
}
