package prepare

import "wasmcache/internal/vmconfig"

// Preparer validates and instruments raw contract bytecode before it is
// handed to a backend. A preparation error is cached exactly like a
// compilation error.
type Preparer interface {
	Prepare(code []byte, cfg *vmconfig.Config, mode vmconfig.GasMeteringMode) ([]byte, error)
}

// PreparerFunc adapts a plain function to the Preparer interface
type PreparerFunc func(code []byte, cfg *vmconfig.Config, mode vmconfig.GasMeteringMode) ([]byte, error)

// Prepare calls f
func (f PreparerFunc) Prepare(code []byte, cfg *vmconfig.Config, mode vmconfig.GasMeteringMode) ([]byte, error) {
	return f(code, cfg, mode)
}

// WebAssembly binary framing
const (
	headerSize = 8

	sectionCustom   byte = 0
	sectionFunction byte = 3
	sectionMemory   byte = 5
)

var wasmHeader = [headerSize]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
