package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wasmcache/internal/vmconfig"
)

// Kind identifies a compiler backend. The set is closed; values are part of
// every fingerprint and must never be renumbered.
type Kind uint8

const (
	// KindWazeroInterpreter runs contracts on wazero's interpreter engine
	KindWazeroInterpreter Kind = iota
	// KindWazeroCompiler compiles contracts to native code with wazero
	KindWazeroCompiler
	// KindWasmtime is reserved for a wasmtime backend that is not implemented.
	// Selecting it is fatal.
	KindWasmtime
)

// String returns the backend name used in configuration and logs
func (k Kind) String() string {
	switch k {
	case KindWazeroInterpreter:
		return "wazero-interpreter"
	case KindWazeroCompiler:
		return "wazero-compiler"
	case KindWasmtime:
		return "wasmtime"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ParseKind parses a backend name
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "wazero-interpreter", "interpreter":
		return KindWazeroInterpreter, nil
	case "wazero-compiler", "compiler":
		return KindWazeroCompiler, nil
	case "wasmtime":
		return KindWasmtime, nil
	default:
		return 0, fmt.Errorf("unknown backend '%s'", s)
	}
}

// CompilerBackendProtocolVersion is the first protocol version executed by
// the native compiler backend.
const CompilerBackendProtocolVersion uint32 = 50

// ForProtocolVersion selects the backend used at a protocol version. Every
// node must agree on this mapping, so it depends on nothing but v.
func ForProtocolVersion(v uint32) Kind {
	if v >= CompilerBackendProtocolVersion {
		return KindWazeroCompiler
	}
	return KindWazeroInterpreter
}

// Module is a compiled contract. Its concrete type belongs to the backend
// that produced it.
type Module interface {
	Kind() Kind
}

// Adapter is implemented by every supported backend
type Adapter interface {
	// Kind returns the backend identity
	Kind() Kind

	// Version returns the backend's internal version. It changes whenever
	// artifacts produced by an older build become unreadable or
	// semantically different.
	Version() uint64

	// Compile compiles prepared bytecode. Invalid contracts yield a
	// *vmerr.CompileError.
	Compile(ctx context.Context, prepared []byte, cfg *vmconfig.Config, mode vmconfig.GasMeteringMode) (Module, error)

	// Serialize converts a module produced by this adapter to bytes
	Serialize(m Module) ([]byte, error)

	// Deserialize reconstructs a module from Serialize output. Artifacts
	// written at another Version are rejected with ErrVersionMismatch.
	Deserialize(ctx context.Context, data []byte) (Module, error)
}

var (
	// ErrVersionMismatch is returned when an artifact was produced by a
	// different backend build
	ErrVersionMismatch = errors.New("artifact backend version mismatch")

	// ErrForeignModule is returned when a module is handed to an adapter
	// that did not produce it
	ErrForeignModule = errors.New("module belongs to another backend")
)
