package backend

import (
	"encoding/binary"
	"runtime/debug"
	"sync"

	"github.com/zeebo/xxh3"
)

// artifactFormat is bumped whenever the artifact envelope changes
const artifactFormat uint16 = 1

const wazeroModulePath = "github.com/tetratelabs/wazero"

var linkedWazeroVersion = sync.OnceValue(func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, dep := range info.Deps {
		if dep.Path != wazeroModulePath {
			continue
		}
		if dep.Replace != nil {
			return dep.Replace.Path + "@" + dep.Replace.Version
		}
		return dep.Version
	}
	return "unknown"
})

// internalVersion combines the artifact format, backend identity and the
// linked engine version into the backend's internal version.
func internalVersion(kind Kind, engineVersion string) uint64 {
	h := xxh3.New()
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], artifactFormat)
	h.Write(b[:])
	h.WriteString(kind.String())
	h.WriteString("\x00")
	h.WriteString(engineVersion)
	return h.Sum64()
}
