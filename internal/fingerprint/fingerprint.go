package fingerprint

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"

	"wasmcache/internal/backend"
	"wasmcache/internal/contract"
	"wasmcache/internal/vmconfig"
)

// Fingerprint identifies one (code, config, backend, backend version,
// gas metering mode) tuple. It is the persistent cache key.
type Fingerprint [32]byte

// String returns the hex encoding of the fingerprint
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Bytes returns the fingerprint as a store key
func (f Fingerprint) Bytes() []byte {
	return f[:]
}

// VersionProbe reports a backend's internal version
type VersionProbe interface {
	Version(kind backend.Kind) uint64
}

// Key is the structured form of a fingerprint before hashing
type Key struct {
	Version        byte
	CodeHash       contract.Hash
	ConfigHash     uint64
	Backend        backend.Kind
	BackendVersion uint64
	GasMetering    vmconfig.GasMeteringMode
}

// Build computes the current fingerprint of code compiled with cfg on kind.
// Pure and deterministic for a fixed backend internal version.
func Build(code *contract.Code, cfg *vmconfig.Config, kind backend.Kind, mode vmconfig.GasMeteringMode, versions VersionProbe) Fingerprint {
	key := Key{
		Version:        CurrentKeyVersion,
		CodeHash:       code.Hash(),
		ConfigHash:     cfg.NonCryptoHash(),
		Backend:        kind,
		BackendVersion: versions.Version(kind),
		GasMetering:    mode,
	}
	return key.Fingerprint()
}

// Fingerprint hashes the serialized key with SHA3-256
func (k *Key) Fingerprint() Fingerprint {
	return Fingerprint(sha3.Sum256(k.Serialize()))
}

// Serialize produces the deterministic byte form of the key. Only the fields
// that exist in k.Version are written.
//
// Encoding: version tag byte, 32-byte code hash, big-endian uint64 integers,
// single bytes for backend and gas metering mode.
func (k *Key) Serialize() []byte {
	buf := make([]byte, 0, 1+32+8+1+8+1)
	buf = append(buf, k.Version)

	switch k.Version {
	case KeyVersion1:
		buf = k.appendBase(buf)
	case KeyVersion2:
	case KeyVersion3:
		buf = k.appendBase(buf)
		buf = binary.BigEndian.AppendUint64(buf, k.BackendVersion)
	case KeyVersion4:
		buf = k.appendBase(buf)
		buf = binary.BigEndian.AppendUint64(buf, k.BackendVersion)
		buf = append(buf, byte(k.GasMetering))
	default:
		panic(fmt.Sprintf("fingerprint: unknown key version 0x%02x", k.Version))
	}
	return buf
}

func (k *Key) appendBase(buf []byte) []byte {
	buf = append(buf, k.CodeHash[:]...)
	buf = binary.BigEndian.AppendUint64(buf, k.ConfigHash)
	return append(buf, byte(k.Backend))
}
