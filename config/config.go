// Package config holds the plain settings structs a VM and its CPUs
// are constructed from (§4.8), mirroring
// `original_source/global/src/configs.rs`'s `runtime::VMConfig`/
// `CPUConfig` as exported-field Go structs rather than a builder: no
// functional-options or builder library appears anywhere in the
// retrieval corpus for a plain settings type, and the teacher itself
// constructs its own ABI settings (`sys.ABI{...}`) as struct literals.
package config

import "fmt"

// CPUConfig bounds the resources a single CPU is given.
type CPUConfig struct {
	// RegisterCount is the size of each call frame's register file.
	// Defaults to 255, matching the file format's 8-bit register-index
	// field (u8::MAX in the original).
	RegisterCount int
	// MaxCallDepth bounds the CPU's call stack before a StackOverflow
	// error is raised.
	MaxCallDepth int
}

// DefaultCPUConfig matches the original's `CPUConfig::default()`.
func DefaultCPUConfig() CPUConfig {
	return CPUConfig{RegisterCount: 255, MaxCallDepth: 4096}
}

// AssemblyLookuper resolves an assembly name to a file path, the hook
// `AssemblyManager`'s default loader consults before giving up (§4.3).
type AssemblyLookuper func(name string) (path string, ok bool)

// VMConfig holds the settings a VM is constructed from.
type VMConfig struct {
	DefaultCPUConfig       CPUConfig
	IsDynamicCheckingEnabled bool
	AssemblyLookuper       AssemblyLookuper
}

// DefaultVMConfig matches the original's debug/release split on
// dynamic checking (enabled unless explicitly turned off) and leaves
// AssemblyLookuper nil; assemblyio.DefaultLookuper builds the
// environment-variable-driven scanner described in §6.
func DefaultVMConfig() VMConfig {
	return VMConfig{DefaultCPUConfig: DefaultCPUConfig(), IsDynamicCheckingEnabled: true}
}

// Kind distinguishes the ways building a runtime configuration can
// fail (§7 "ConfigError").
type Kind uint8

const (
	MissingEnvVar Kind = iota
	MissingStdlibDir
)

func (k Kind) String() string {
	switch k {
	case MissingEnvVar:
		return "missing environment variable"
	case MissingStdlibDir:
		return "missing standard library directory"
	default:
		return "config error"
	}
}

// Error reports a ConfigError (§7).
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("config: %s: %s", e.Kind, e.Message) }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
