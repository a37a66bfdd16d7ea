package channel

import (
	stderrors "errors"
	"sort"
	"sync"

	"github.com/AnriaW/minipar/internal/errors"
)

// Registry owns every channel opened during one program run. Channel names
// are global to the program, matching the analyzer's channel namespace.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*Channel
}

func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]*Channel)}
}

// Put registers c under its name. A second channel with the same name is
// rejected and left open for the caller to close.
func (r *Registry) Put(c *Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.channels[c.Name]; ok {
		return errors.Newf(errors.CodeChannel, "channel '%s' already open", c.Name)
	}
	r.channels[c.Name] = c
	return nil
}

// Get returns the channel registered under name.
func (r *Registry) Get(name string) (*Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.channels[name]
	if !ok {
		return nil, errors.Newf(errors.CodeExecution, "channel '%s' is not open", name)
	}
	return c, nil
}

// Names returns the registered channel names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CloseAll closes every channel exactly once and empties the registry.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	channels := r.channels
	r.channels = make(map[string]*Channel)
	r.mu.Unlock()

	var errs []error
	for _, c := range channels {
		errs = append(errs, c.Close())
	}
	return stderrors.Join(errs...)
}
