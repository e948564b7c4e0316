package embedx

import (
	"fmt"
	"sync"
)

// Registry is the slot holding one lazily constructed Instance.
type Registry struct {
	once sync.Once
	mu   sync.Mutex
	opts []Option
	inst *Instance
}

// NewRegistry returns an empty slot whose instance will be built with opts.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{opts: opts}
}

// Configure appends construction options. It fails with
// ErrConfigurationTooLate once the instance exists.
func (r *Registry) Configure(opts ...Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inst != nil {
		return fmt.Errorf("%w: instance %s already created", ErrConfigurationTooLate, r.inst.id)
	}
	r.opts = append(r.opts, opts...)
	return nil
}

// Instance returns the slot's instance, constructing it on first call.
// Concurrent first calls observe the same fully built instance.
func (r *Registry) Instance() *Instance {
	r.once.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.inst = NewInstance(r.opts...)
	})
	return r.inst
}

var process = NewRegistry()

// GetInstance returns the process-wide instance, constructing it on first
// call.
func GetInstance() *Instance {
	return process.Instance()
}

// Configure sets construction options for the process-wide instance. It
// must be called before the first GetInstance.
func Configure(opts ...Option) error {
	return process.Configure(opts...)
}
