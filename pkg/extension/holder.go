package extension

import "sync"

// holder is a one-slot, lazily-populated cell with publish-once semantics,
// used for double-checked per-name instance creation: a per-name lock held
// only long enough to create the holder, then a per-holder sync.Once for
// the actual construction.
type holder struct {
	once  sync.Once
	value interface{}
	err   error
}

// get runs fill at most once and returns its result on every call,
// including concurrent callers that arrive while fill is still running.
func (h *holder) get(fill func() (interface{}, error)) (interface{}, error) {
	h.once.Do(func() {
		h.value, h.err = fill()
	})
	return h.value, h.err
}
