package keystore

import "fmt"

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

// Open returns the medium for backend at path. path is ignored for the
// memory backend.
func Open(backend, path string) (Medium, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendBolt:
		return OpenBolt(path)
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("keystore: unknown backend %q", backend)
	}
}
