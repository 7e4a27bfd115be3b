package vmconfig

import (
	"fmt"
	"strings"
)

// GasMeteringMode selects how gas accounting is instrumented into contract
// bytecode. It changes the generated code and is part of every fingerprint.
type GasMeteringMode uint8

const (
	// GasMeteringWasm injects gas counters into the contract bytecode itself
	GasMeteringWasm GasMeteringMode = iota
	// GasMeteringHost charges gas from host functions only
	GasMeteringHost
)

// String returns the mode name used in configuration files
func (m GasMeteringMode) String() string {
	switch m {
	case GasMeteringWasm:
		return "wasm"
	case GasMeteringHost:
		return "host"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// ParseGasMeteringMode parses a configuration value
func ParseGasMeteringMode(s string) (GasMeteringMode, error) {
	switch strings.ToLower(s) {
	case "wasm", "":
		return GasMeteringWasm, nil
	case "host":
		return GasMeteringHost, nil
	default:
		return 0, fmt.Errorf("unknown gas metering mode '%s'", s)
	}
}

// Limits bounds the resources a contract may declare
type Limits struct {
	MaxContractSize    uint64 `json:"maxContractSize" yaml:"maxContractSize" toml:"maxContractSize" cbor:"1,keyasint"`
	MaxMemoryPages     uint32 `json:"maxMemoryPages" yaml:"maxMemoryPages" toml:"maxMemoryPages" cbor:"2,keyasint"`
	InitialMemoryPages uint32 `json:"initialMemoryPages" yaml:"initialMemoryPages" toml:"initialMemoryPages" cbor:"3,keyasint"`
	MaxStackHeight     uint32 `json:"maxStackHeight" yaml:"maxStackHeight" toml:"maxStackHeight" cbor:"4,keyasint"`
	MaxFunctions       uint64 `json:"maxFunctions" yaml:"maxFunctions" toml:"maxFunctions" cbor:"5,keyasint"`
}

// Features toggles WebAssembly proposals accepted on top of the MVP
type Features struct {
	SignExtension  bool `json:"signExtension" yaml:"signExtension" toml:"signExtension" cbor:"1,keyasint"`
	MultiValue     bool `json:"multiValue" yaml:"multiValue" toml:"multiValue" cbor:"2,keyasint"`
	BulkMemory     bool `json:"bulkMemory" yaml:"bulkMemory" toml:"bulkMemory" cbor:"3,keyasint"`
	NonTrappingF2I bool `json:"nonTrappingF2I" yaml:"nonTrappingF2I" toml:"nonTrappingF2I" cbor:"4,keyasint"`
	MutableGlobals bool `json:"mutableGlobals" yaml:"mutableGlobals" toml:"mutableGlobals" cbor:"5,keyasint"`
	ReferenceTypes bool `json:"referenceTypes" yaml:"referenceTypes" toml:"referenceTypes" cbor:"6,keyasint"`
	SIMD           bool `json:"simd" yaml:"simd" toml:"simd" cbor:"7,keyasint"`
}

// Config is the compilation configuration: every parameter that can change
// the shape of the code a backend generates for a contract.
type Config struct {
	RegularOpCost uint32   `json:"regularOpCost" yaml:"regularOpCost" toml:"regularOpCost" cbor:"1,keyasint"`
	GrowMemCost   uint32   `json:"growMemCost" yaml:"growMemCost" toml:"growMemCost" cbor:"2,keyasint"`
	Limits        Limits   `json:"limits" yaml:"limits" toml:"limits" cbor:"3,keyasint"`
	Features      Features `json:"features" yaml:"features" toml:"features" cbor:"4,keyasint"`
}

// Default values
const (
	DefaultRegularOpCost      = 822756
	DefaultGrowMemCost        = 1
	DefaultMaxContractSize    = 4 * 1024 * 1024
	DefaultMaxMemoryPages     = 2048
	DefaultInitialMemoryPages = 1024
	DefaultMaxStackHeight     = 256 * 1024
	DefaultMaxFunctions       = 10000
)
