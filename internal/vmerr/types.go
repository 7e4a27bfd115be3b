package vmerr

import (
	"errors"
	"fmt"
)

// ErrUnsupportedBackend is carried by the panic raised when a declared but
// unimplemented backend is selected.
var ErrUnsupportedBackend = errors.New("backend is not supported")

// CompileErrorKind identifies why a contract failed to compile.
// Values are persisted inside failure records and must never be renamed.
type CompileErrorKind string

const (
	// Preparation failures
	KindCodeTooLarge     CompileErrorKind = "prepare_code_too_large"
	KindEmptyCode        CompileErrorKind = "prepare_empty_code"
	KindInvalidHeader    CompileErrorKind = "prepare_invalid_header"
	KindMalformedSection CompileErrorKind = "prepare_malformed_section"
	KindMemoryTooLarge   CompileErrorKind = "prepare_memory_too_large"
	KindTooManyFunctions CompileErrorKind = "prepare_too_many_functions"

	// Backend failures
	KindInvalidModule CompileErrorKind = "compile_invalid_module"
	KindInvalidConfig CompileErrorKind = "compile_invalid_config"
	KindInternal      CompileErrorKind = "compile_internal"
)

// CompileError describes a contract that cannot be compiled.
// It is the error descriptor stored in failure records, so it is replayed
// verbatim on later lookups.
type CompileError struct {
	Kind    CompileErrorKind `cbor:"1,keyasint"`
	Message string           `cbor:"2,keyasint"`
}

// Error implements the error interface
func (e *CompileError) Error() string {
	return fmt.Sprintf("compilation failed (%s): %s", e.Kind, e.Message)
}

// NewCompileError creates a new compile error
func NewCompileError(kind CompileErrorKind, message string) *CompileError {
	return &CompileError{
		Kind:    kind,
		Message: message,
	}
}

// CacheErrorKind classifies persistent cache failures
type CacheErrorKind int

const (
	CacheReadError CacheErrorKind = iota + 1
	CacheWriteError
	CacheSerializationError
	CacheDeserializationError
)

// String returns the kind name
func (k CacheErrorKind) String() string {
	switch k {
	case CacheReadError:
		return "read"
	case CacheWriteError:
		return "write"
	case CacheSerializationError:
		return "serialization"
	case CacheDeserializationError:
		return "deserialization"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// CacheError reports a failure of the compiled-contract cache itself,
// as opposed to a failure of the contract.
type CacheError struct {
	Kind CacheErrorKind
	// Key is the fingerprint involved, when known
	Key []byte
	Err error
}

// Error implements the error interface
func (e *CacheError) Error() string {
	msg := fmt.Sprintf("contract cache %s error", e.Kind)
	if len(e.Key) > 0 {
		msg = fmt.Sprintf("%s for %x", msg, e.Key)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *CacheError) Unwrap() error {
	return e.Err
}

// NewCacheError creates a new cache error
func NewCacheError(kind CacheErrorKind, key []byte, err error) *CacheError {
	return &CacheError{
		Kind: kind,
		Key:  key,
		Err:  err,
	}
}

// IsCacheError reports whether err is a cache error of the given kind
func IsCacheError(err error, kind CacheErrorKind) bool {
	var ce *CacheError
	return errors.As(err, &ce) && ce.Kind == kind
}

// AsCompileError extracts a compile error from err
func AsCompileError(err error) (*CompileError, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
