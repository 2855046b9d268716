package assemblyio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStdlibDirRequiresEnvVar(t *testing.T) {
	t.Setenv("PURALINGUA_HOME", "")
	os.Unsetenv("PURALINGUA_HOME")

	if _, err := StdlibDir(); err == nil {
		t.Fatalf("StdlibDir() with no PURALINGUA_HOME: want error, got nil")
	}
}

func TestStdlibDirRequiresLibraryDirectory(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PURALINGUA_HOME", home)

	if _, err := StdlibDir(); err == nil {
		t.Fatalf("StdlibDir() with no Library subdirectory: want error, got nil")
	}

	if err := os.Mkdir(filepath.Join(home, "Library"), 0o755); err != nil {
		t.Fatalf("Mkdir(Library): %v", err)
	}

	dir, err := StdlibDir()
	if err != nil {
		t.Fatalf("StdlibDir(): %v", err)
	}
	if dir != filepath.Join(home, "Library") {
		t.Fatalf("StdlibDir() = %q, want %q", dir, filepath.Join(home, "Library"))
	}
}

func TestDefaultLookuperFindsAssembliesByName(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "System.plasm"), []byte("stub"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	lookup := DefaultLookuper(dir)

	path, ok := lookup("System")
	if !ok {
		t.Fatalf("lookup(System) = not found, want %s", filepath.Join(dir, "System.plasm"))
	}
	if path != filepath.Join(dir, "System.plasm") {
		t.Fatalf("lookup(System) = %q, want %q", path, filepath.Join(dir, "System.plasm"))
	}

	if _, ok := lookup("Missing"); ok {
		t.Fatalf("lookup(Missing) = found, want not found")
	}
}
