package runtime

import (
	"fmt"
	"sync"
)

// Handler processes every job on one named queue. Handlers must be idempotent
// with respect to their (user, date) key: delivery is at least once and two
// executions for the same key may race.
type Handler interface {
	Queue() string
	Run(ctx *Context) (any, error)
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	q := h.Queue()
	if q == "" {
		return fmt.Errorf("handler Queue() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[q]; exists {
		return fmt.Errorf("handler already registered for queue=%s", q)
	}
	r.handlers[q] = h
	return nil
}

func (r *Registry) Get(queue string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[queue]
	return h, ok
}

// Queues returns the set of queue names with a registered handler.
func (r *Registry) Queues() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for q := range r.handlers {
		out = append(out, q)
	}
	return out
}
