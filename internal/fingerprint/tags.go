package fingerprint

// ---------------------------------------------------------------------------
// Frozen key version tags.
//
// The tag is the first byte of every serialized key and is hashed with it,
// so introducing a new version invalidates every previously cached artifact.
// Retired versions keep their byte forever; never reuse or reorder them.
// ---------------------------------------------------------------------------

const (
	// KeyVersion1: code hash, config hash, backend
	KeyVersion1 byte = 0x00
	// KeyVersion2 was never written. Reserved.
	KeyVersion2 byte = 0x01
	// KeyVersion3 adds the backend internal version
	KeyVersion3 byte = 0x02
	// KeyVersion4 adds the gas metering mode
	KeyVersion4 byte = 0x03
)

// CurrentKeyVersion is the version used for new fingerprints
const CurrentKeyVersion = KeyVersion4

var allKeyVersions = []byte{KeyVersion1, KeyVersion2, KeyVersion3, KeyVersion4}
