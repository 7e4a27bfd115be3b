package backend

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"wasmcache/internal/vmconfig"
)

var artifactEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("backend: failed to create CBOR enc mode: %v", err))
	}
	artifactEncMode = em
}

// artifact is the persisted form of a wazero module. It carries the
// validated bytecode and the configuration it was compiled under; native
// code is recovered from the engine's compilation cache on load.
type artifact struct {
	Format  uint16           `cbor:"1,keyasint"`
	Backend Kind             `cbor:"2,keyasint"`
	Version uint64           `cbor:"3,keyasint"`
	Config  *vmconfig.Config `cbor:"4,keyasint"`
	Mode    uint8            `cbor:"5,keyasint"`
	Code    []byte           `cbor:"6,keyasint"`
}

func marshalArtifact(a *artifact) ([]byte, error) {
	return artifactEncMode.Marshal(a)
}

func unmarshalArtifact(data []byte) (*artifact, error) {
	var a artifact
	if err := cbor.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("unmarshal artifact: %w", err)
	}
	if a.Config == nil {
		return nil, fmt.Errorf("unmarshal artifact: missing config")
	}
	return &a, nil
}
