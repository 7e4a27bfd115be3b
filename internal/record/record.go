package record

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"wasmcache/internal/vmerr"
)

// Frozen record tags
const (
	tagFailure  byte = 0x00
	tagArtifact byte = 0x01
)

// ErrMalformed is wrapped by every decoding failure
var ErrMalformed = errors.New("malformed cache record")

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("record: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Record is the persisted outcome of compiling one fingerprint: either the
// compile error that was produced, or the backend artifact.
type Record struct {
	Failure  *vmerr.CompileError
	Artifact []byte
}

// Failure creates a record remembering a failed compilation
func Failure(err *vmerr.CompileError) Record {
	return Record{Failure: err}
}

// Artifact creates a record holding a serialized module
func Artifact(data []byte) Record {
	return Record{Artifact: data}
}

// IsFailure reports whether the record remembers a compile error
func (r Record) IsFailure() bool {
	return r.Failure != nil
}

// Encode produces the record's byte form: a tag byte followed by the
// canonical CBOR payload.
func Encode(r Record) []byte {
	var (
		tag     byte
		payload []byte
		err     error
	)
	if r.Failure != nil {
		tag = tagFailure
		payload, err = encMode.Marshal(r.Failure)
	} else {
		tag = tagArtifact
		payload, err = encMode.Marshal(r.Artifact)
	}
	if err != nil {
		// Payloads are strings and byte slices only.
		panic(fmt.Sprintf("record: encoding failed: %v", err))
	}

	out := make([]byte, 0, 1+len(payload))
	out = append(out, tag)
	return append(out, payload...)
}

// Decode parses bytes produced by Encode
func Decode(data []byte) (Record, error) {
	if len(data) == 0 {
		return Record{}, fmt.Errorf("%w: empty", ErrMalformed)
	}

	switch data[0] {
	case tagFailure:
		var ce vmerr.CompileError
		if err := cbor.Unmarshal(data[1:], &ce); err != nil {
			return Record{}, fmt.Errorf("%w: failure payload: %v", ErrMalformed, err)
		}
		if ce.Kind == "" {
			return Record{}, fmt.Errorf("%w: failure without kind", ErrMalformed)
		}
		return Failure(&ce), nil

	case tagArtifact:
		var artifact []byte
		if err := cbor.Unmarshal(data[1:], &artifact); err != nil {
			return Record{}, fmt.Errorf("%w: artifact payload: %v", ErrMalformed, err)
		}
		return Artifact(artifact), nil

	default:
		return Record{}, fmt.Errorf("%w: unknown tag 0x%02x", ErrMalformed, data[0])
	}
}
