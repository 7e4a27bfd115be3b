package contract

import (
	"crypto/sha256"
	"testing"
)

func TestCode_Hash(t *testing.T) {
	raw := []byte("\x00asm\x01\x00\x00\x00")
	c := NewCode(raw)

	want := Hash(sha256.Sum256(raw))
	if got := c.Hash(); got != want {
		t.Fatalf("Hash() = %s, want %s", got, want)
	}
	if c.Hash() != c.Hash() {
		t.Fatal("Hash() not stable")
	}
}

func TestCode_CopiesInput(t *testing.T) {
	raw := []byte{1, 2, 3}
	c := NewCode(raw)
	before := c.Hash()

	raw[0] = 9
	if c.Bytes()[0] != 1 {
		t.Fatal("Code shares caller's slice")
	}
	if c.Hash() != before {
		t.Fatal("hash changed after caller mutation")
	}
}

func TestNewCodeWithHash(t *testing.T) {
	var h Hash
	h[0] = 0xaa
	c := NewCodeWithHash([]byte{1}, h)
	if c.Hash() != h {
		t.Fatalf("Hash() = %s, want supplied hash %s", c.Hash(), h)
	}
}
