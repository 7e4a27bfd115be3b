package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Hash is the SHA-256 content hash of contract bytecode
type Hash [32]byte

// String returns the hex encoding of the hash
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Code is an immutable contract bytecode blob together with its content
// hash. The hash is computed at most once.
type Code struct {
	code []byte
	hash Hash
	once sync.Once
}

// NewCode wraps bytecode. The slice is copied so later mutation by the
// caller cannot change the identity of the contract.
func NewCode(code []byte) *Code {
	cp := make([]byte, len(code))
	copy(cp, code)
	return &Code{code: cp}
}

// NewCodeWithHash wraps bytecode whose hash is already known, e.g. when it
// was loaded from chain state keyed by that hash.
func NewCodeWithHash(code []byte, hash Hash) *Code {
	c := NewCode(code)
	c.once.Do(func() { c.hash = hash })
	return c
}

// Bytes returns the bytecode. Callers must not modify it.
func (c *Code) Bytes() []byte {
	return c.code
}

// Hash returns the content hash
func (c *Code) Hash() Hash {
	c.once.Do(func() {
		c.hash = sha256.Sum256(c.code)
	})
	return c.hash
}

// Len returns the bytecode size in bytes
func (c *Code) Len() int {
	return len(c.code)
}
