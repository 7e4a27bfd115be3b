package vmconfig

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/xxh3"
)

var canonicalEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vmconfig: failed to create CBOR enc mode: %v", err))
	}
	canonicalEncMode = em
}

// Default returns the configuration used when none is supplied
func Default() *Config {
	return &Config{
		RegularOpCost: DefaultRegularOpCost,
		GrowMemCost:   DefaultGrowMemCost,
		Limits: Limits{
			MaxContractSize:    DefaultMaxContractSize,
			MaxMemoryPages:     DefaultMaxMemoryPages,
			InitialMemoryPages: DefaultInitialMemoryPages,
			MaxStackHeight:     DefaultMaxStackHeight,
			MaxFunctions:       DefaultMaxFunctions,
		},
		Features: Features{
			SignExtension:  true,
			MultiValue:     true,
			MutableGlobals: true,
		},
	}
}

// Clone returns an independent copy
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Canonical returns the deterministic CBOR form of the configuration
func (c *Config) Canonical() []byte {
	data, err := canonicalEncMode.Marshal(c)
	if err != nil {
		// Config only holds fixed-size scalars; encoding cannot fail.
		panic(fmt.Sprintf("vmconfig: canonical encoding failed: %v", err))
	}
	return data
}

// NonCryptoHash reduces the configuration to a 64-bit value for
// fingerprinting. Equal hashes are a performance guarantee only; integrity
// comes from combining it with the contract's content hash.
func (c *Config) NonCryptoHash() uint64 {
	return xxh3.Hash(c.Canonical())
}

// Validate checks that limits are usable
func (c *Config) Validate() error {
	if c.Limits.MaxContractSize == 0 {
		return fmt.Errorf("limits.maxContractSize must be positive")
	}
	if c.Limits.MaxMemoryPages == 0 || c.Limits.MaxMemoryPages > 65536 {
		return fmt.Errorf("limits.maxMemoryPages must be between 1 and 65536")
	}
	if c.Limits.InitialMemoryPages > c.Limits.MaxMemoryPages {
		return fmt.Errorf("limits.initialMemoryPages must not exceed limits.maxMemoryPages")
	}
	return nil
}
