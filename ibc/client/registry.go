package client

import (
	"fmt"
	"sync"
)

// Registry maps 08-wasm code ids to the client type their contract runs.
// It is safe for concurrent use.
type Registry struct {
	mtx   sync.RWMutex
	codes map[string]string
}

func NewRegistry() *Registry {
	return &Registry{codes: make(map[string]string)}
}

// Register records that contracts of codeID run clientType. Registering the
// same pair twice is a no-op; rebinding a code id fails.
func (r *Registry) Register(codeID []byte, clientType string) error {
	if len(codeID) == 0 {
		return fmt.Errorf("%w: empty code id", ErrUnknownCodeID)
	}
	if KindOfClientType(clientType) == KindUnknown {
		return fmt.Errorf("%w: client type %q", ErrUnknownClientKind, clientType)
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	if existing, ok := r.codes[string(codeID)]; ok {
		if existing == clientType {
			return nil
		}
		return fmt.Errorf("%w: %X runs %s", ErrCodeIDInUse, codeID, existing)
	}
	r.codes[string(codeID)] = clientType
	return nil
}

// ClientType returns the client type registered for codeID.
func (r *Registry) ClientType(codeID []byte) (string, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	clientType, ok := r.codes[string(codeID)]
	return clientType, ok
}

// Len returns the number of registered code ids.
func (r *Registry) Len() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return len(r.codes)
}
