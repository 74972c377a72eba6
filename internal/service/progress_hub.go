package service

import "sync"

// ProgressHub fans progress values of running uploads out to live subscribers.
type ProgressHub struct {
	mu   sync.Mutex
	subs map[string]map[chan int]struct{}
}

// NewProgressHub creates an empty hub.
func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: make(map[string]map[chan int]struct{})}
}

// Subscribe returns a channel receiving the progress of key. The channel is
// closed when the upload finishes or when cancel is called.
func (h *ProgressHub) Subscribe(key string) (<-chan int, func()) {
	ch := make(chan int, 16)
	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[chan int]struct{})
	}
	h.subs[key][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[key][ch]; ok {
				delete(h.subs[key], ch)
				close(ch)
				if len(h.subs[key]) == 0 {
					delete(h.subs, key)
				}
			}
		})
	}
	return ch, cancel
}

// Publish sends p to every subscriber of key. Slow subscribers miss values
// rather than stall the upload.
func (h *ProgressHub) Publish(key string, p int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[key] {
		select {
		case ch <- p:
		default:
		}
	}
}

// Close ends every subscription of key.
func (h *ProgressHub) Close(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[key] {
		close(ch)
	}
	delete(h.subs, key)
}
