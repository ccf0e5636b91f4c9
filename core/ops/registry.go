package ops

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/jdelaire/scanrelay/core/policy"
)

// Request carries a parsed chat command to an Op.
type Request struct {
	ChatID int64
	UserID int64
	Args   []string
}

// Op defines an executable operation triggered by an inbound command.
type Op interface {
	Name() string
	Description() string
	Execute(ctx context.Context, req Request) (string, error)
}

// FailureReplier is an optional interface for ops that want a fixed chat
// reply when Execute fails. The error itself is only logged.
type FailureReplier interface {
	FailureReply() string
}

// Registry holds registered operations keyed by name.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Op
}

// NewRegistry creates an empty operation registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Op)}
}

// NewRelayRegistry returns the registry the relay serves: /start and /scan.
// Any other command is left unregistered and therefore ignored.
func NewRelayRegistry(pol *policy.Policy, scorer Scorer) (*Registry, error) {
	r := NewRegistry()
	for _, op := range []Op{
		&StartOp{},
		&ScanOp{Policy: pol, Scorer: scorer},
	} {
		if err := r.Register(op); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an operation. Returns an error if the name is already registered.
func (r *Registry) Register(op Op) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := op.Name()
	if _, exists := r.ops[name]; exists {
		return fmt.Errorf("op already registered: %s", name)
	}
	r.ops[name] = op
	return nil
}

// Get returns the operation with the given name, or nil if not found.
func (r *Registry) Get(name string) Op {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ops[name]
}

// List returns all registered operations sorted by name.
func (r *Registry) List() []Op {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := slices.Sorted(maps.Keys(r.ops))
	result := make([]Op, len(names))
	for i, name := range names {
		result[i] = r.ops[name]
	}
	return result
}
