package prepare

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"wasmcache/internal/vmconfig"
	"wasmcache/internal/vmerr"
)

// Validator is the default Preparer. It enforces the configured size,
// memory and function limits on the module's section framing and returns
// the bytecode unchanged. Gas instrumentation is performed upstream by the
// host's bytecode rewriter.
type Validator struct{}

// NewValidator creates a new Validator
func NewValidator() *Validator {
	return &Validator{}
}

// Prepare checks code against cfg's limits
func (v *Validator) Prepare(code []byte, cfg *vmconfig.Config, mode vmconfig.GasMeteringMode) ([]byte, error) {
	if len(code) == 0 {
		return nil, vmerr.NewCompileError(vmerr.KindEmptyCode, "contract code is empty")
	}
	if uint64(len(code)) > cfg.Limits.MaxContractSize {
		return nil, vmerr.NewCompileError(vmerr.KindCodeTooLarge,
			fmt.Sprintf("contract size %d exceeds limit %d", len(code), cfg.Limits.MaxContractSize))
	}
	if len(code) < headerSize || !bytes.Equal(code[:headerSize], wasmHeader[:]) {
		return nil, vmerr.NewCompileError(vmerr.KindInvalidHeader, "missing wasm magic or unsupported version")
	}

	pos := headerSize
	for pos < len(code) {
		id := code[pos]
		pos++

		size, n := binary.Uvarint(code[pos:])
		if n <= 0 {
			return nil, malformed("section %d: bad size", id)
		}
		pos += n
		if size > uint64(len(code)-pos) {
			return nil, malformed("section %d: size %d overruns module", id, size)
		}
		body := code[pos : pos+int(size)]
		pos += int(size)

		var err error
		switch id {
		case sectionCustom:
			continue
		case sectionFunction:
			err = checkFunctions(body, cfg)
		case sectionMemory:
			err = checkMemory(body, cfg)
		}
		if err != nil {
			return nil, err
		}
	}

	return code, nil
}

func checkFunctions(body []byte, cfg *vmconfig.Config) error {
	count, n := binary.Uvarint(body)
	if n <= 0 {
		return malformed("function section: bad count")
	}
	if count > cfg.Limits.MaxFunctions {
		return vmerr.NewCompileError(vmerr.KindTooManyFunctions,
			fmt.Sprintf("%d functions declared, limit is %d", count, cfg.Limits.MaxFunctions))
	}
	return nil
}

func checkMemory(body []byte, cfg *vmconfig.Config) error {
	count, n := binary.Uvarint(body)
	if n <= 0 {
		return malformed("memory section: bad count")
	}
	body = body[n:]

	limit := uint64(cfg.Limits.MaxMemoryPages)
	for i := uint64(0); i < count; i++ {
		if len(body) == 0 {
			return malformed("memory section: truncated limits")
		}
		flags := body[0]
		body = body[1:]

		minPages, n := binary.Uvarint(body)
		if n <= 0 {
			return malformed("memory section: bad minimum")
		}
		body = body[n:]
		if minPages > limit {
			return vmerr.NewCompileError(vmerr.KindMemoryTooLarge,
				fmt.Sprintf("memory minimum %d pages exceeds limit %d", minPages, limit))
		}

		if flags&0x01 != 0 {
			maxPages, n := binary.Uvarint(body)
			if n <= 0 {
				return malformed("memory section: bad maximum")
			}
			body = body[n:]
			if maxPages > limit {
				return vmerr.NewCompileError(vmerr.KindMemoryTooLarge,
					fmt.Sprintf("memory maximum %d pages exceeds limit %d", maxPages, limit))
			}
		}
	}
	return nil
}

func malformed(format string, args ...interface{}) error {
	return vmerr.NewCompileError(vmerr.KindMalformedSection, fmt.Sprintf(format, args...))
}
