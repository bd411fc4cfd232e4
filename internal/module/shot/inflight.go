package shot

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// opKind separates the independently tracked async operations a shot
// can have.
type opKind string

const (
	opImage   opKind = "image"
	opVideo   opKind = "video"
	opEnhance opKind = "enhance"
)

// inflightTable tracks shots with an active generation operation and
// the cancel function for each. Entries are added before the provider
// call starts and removed on every exit path, so a concurrent cancel
// can never leave a stuck entry behind.
type inflightTable struct {
	mu  sync.Mutex
	ops map[opKind]map[uuid.UUID]context.CancelFunc
}

func newInflightTable() *inflightTable {
	return &inflightTable{
		ops: map[opKind]map[uuid.UUID]context.CancelFunc{
			opImage:   {},
			opVideo:   {},
			opEnhance: {},
		},
	}
}

// begin registers an operation. A second begin for the same shot and
// kind while the first is still active is a caller error.
func (t *inflightTable) begin(kind opKind, id uuid.UUID, cancel context.CancelFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.ops[kind][id]; exists {
		return ErrGenerationInFlight
	}
	t.ops[kind][id] = cancel
	return nil
}

// end removes an operation. Safe to call when the entry is already
// gone.
func (t *inflightTable) end(kind opKind, id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.ops[kind], id)
}

// cancel fires the stored cancel function, if any, and reports whether
// an operation was actually in flight.
func (t *inflightTable) cancel(kind opKind, id uuid.UUID) bool {
	t.mu.Lock()
	fn, ok := t.ops[kind][id]
	t.mu.Unlock()
	if ok {
		fn()
	}
	return ok
}

// active reports whether the shot has an operation of the given kind
// in flight.
func (t *inflightTable) active(kind opKind, id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.ops[kind][id]
	return ok
}
