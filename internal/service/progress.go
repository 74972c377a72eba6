package service

import (
	"math"
	"sync"
)

// ProgressFunc receives upload progress in percent. It must return quickly.
type ProgressFunc func(percent int)

// progressTracker forwards only strictly increasing values, so concurrent
// chunk completions can never make the reported progress go backwards.
type progressTracker struct {
	mu   sync.Mutex
	last int
	emit []ProgressFunc
}

func newProgressTracker(emit ...ProgressFunc) *progressTracker {
	t := &progressTracker{last: -1}
	for _, fn := range emit {
		if fn != nil {
			t.emit = append(t.emit, fn)
		}
	}
	return t
}

func (t *progressTracker) report(p int) {
	if p > 100 {
		p = 100
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if p <= t.last {
		return
	}
	t.last = p
	for _, fn := range t.emit {
		fn(p)
	}
}

func (t *progressTracker) current() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last < 0 {
		return 0
	}
	return t.last
}

// transferProgress maps transferred bytes into the 5..95 band. The first and
// last 5% belong to setup and finalization.
func transferProgress(uploaded, total int64) int {
	if total <= 0 {
		return 5
	}
	p := int(math.Round(float64(uploaded)/float64(total)*90)) + 5
	if p > 95 {
		return 95
	}
	return p
}
