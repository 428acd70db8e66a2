package capability

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Registry is a thread-safe name→executor directory. Registration normally
// happens once at startup; lookups dominate afterwards, so reads take a
// shared lock.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor

	// order preserves first-registration order for List.
	order []string

	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		executors: make(map[string]Executor),
		logger:    logger,
	}
}

// Register stores an executor under its declared name. Re-registering the
// same name overwrites the previous entry without error; the capability
// keeps its original position in List output.
func (r *Registry) Register(exec Executor) error {
	meta := exec.Metadata()
	if meta.Name == "" {
		return ErrNameEmpty
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.executors[meta.Name]; !exists {
		r.order = append(r.order, meta.Name)
	}
	r.executors[meta.Name] = exec

	r.logger.Debug("registered capability",
		zap.String("name", meta.Name),
		zap.String("category", meta.Category))
	return nil
}

// MustRegister registers an executor and panics on error. Use for static
// registration at startup.
func (r *Registry) MustRegister(exec Executor) {
	if err := r.Register(exec); err != nil {
		panic(fmt.Sprintf("failed to register capability %q: %v", exec.Metadata().Name, err))
	}
}

// Get returns the executor registered under name, or false if absent.
func (r *Registry) Get(name string) (Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exec, ok := r.executors[name]
	return exec, ok
}

// Has reports whether a capability with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns registered capability names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// List returns metadata for every registered capability in registration order.
func (r *Registry) List() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metas := make([]Metadata, 0, len(r.order))
	for _, name := range r.order {
		metas = append(metas, r.executors[name].Metadata())
	}
	return metas
}

// Count returns the number of registered capabilities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.executors)
}

// Execute resolves name and invokes the executor with the given arguments.
// Every failure mode is reported inline in the Result: unknown names,
// missing required parameters, executor-reported errors, and executor
// panics all come back as Success=false.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) Result {
	exec, ok := r.Get(name)
	if !ok {
		return Fail("%s: %s", ErrNotFound, name)
	}
	return r.run(ctx, exec, args)
}

func (r *Registry) run(ctx context.Context, exec Executor, args map[string]any) (result Result) {
	meta := exec.Metadata()

	for _, p := range meta.Parameters {
		if !p.Required {
			continue
		}
		if _, ok := args[p.Name]; !ok {
			return Fail("%s: %s", ErrMissingParameter, p.Name)
		}
	}

	// The executor contract forbids propagating failures, but a buggy
	// implementation must not take the whole task down with it.
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("capability panicked",
				zap.String("name", meta.Name),
				zap.Any("panic", rec))
			result = Fail("capability %s panicked: %v", meta.Name, rec)
		}
	}()

	r.logger.Debug("executing capability", zap.String("name", meta.Name))
	return exec.Run(ctx, args)
}
