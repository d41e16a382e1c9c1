package cart

import "sync"

// Registry owns one Cart per session. Access to a cart goes through With,
// which serialises every operation on that cart while leaving other
// sessions free to proceed.
type Registry struct {
	mu    sync.Mutex
	carts map[string]*owned
}

type owned struct {
	mu        sync.Mutex
	cart      *Cart
	discarded bool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{carts: make(map[string]*owned)}
}

func (r *Registry) acquire(sessionID string) *owned {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.carts[sessionID]
	if !ok {
		o = &owned{cart: New()}
		r.carts[sessionID] = o
	}
	return o
}

// With runs fn with exclusive access to the session's cart, creating an
// empty cart on first use. fn must not retain the cart after returning.
func (r *Registry) With(sessionID string, fn func(c *Cart) error) error {
	for {
		o := r.acquire(sessionID)
		o.mu.Lock()
		if o.discarded {
			// Lost a race with Discard; the next acquire creates a fresh cart.
			o.mu.Unlock()
			continue
		}
		err := fn(o.cart)
		o.mu.Unlock()
		return err
	}
}

// WithExisting is like With but never creates a cart. It reports false
// without calling fn when the session has no live cart.
func (r *Registry) WithExisting(sessionID string, fn func(c *Cart) error) (bool, error) {
	r.mu.Lock()
	o, ok := r.carts[sessionID]
	r.mu.Unlock()
	if !ok {
		return false, nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.discarded {
		return false, nil
	}
	return true, fn(o.cart)
}

// Discard drops the session's cart. Waits for an in-progress With call on
// that cart to finish.
func (r *Registry) Discard(sessionID string) {
	r.mu.Lock()
	o, ok := r.carts[sessionID]
	delete(r.carts, sessionID)
	r.mu.Unlock()

	if !ok {
		return
	}
	o.mu.Lock()
	o.discarded = true
	o.cart.Clear()
	o.mu.Unlock()
}

// Len returns the number of live carts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}
