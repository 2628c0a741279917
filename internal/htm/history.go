package htm

// Time offsets into a cell history.
const (
	Now    = 0
	Before = 1
)

// history is a fixed-depth circular buffer. Offset 0 is the newest entry.
// advance rotates in place and never reallocates.
type history[T any] struct {
	buf  []T
	head int
}

func newHistory[T any](depth int, fill T) history[T] {
	buf := make([]T, depth)
	for i := range buf {
		buf[i] = fill
	}
	return history[T]{buf: buf}
}

func (h *history[T]) depth() int {
	return len(h.buf)
}

func (h *history[T]) inRange(t int) bool {
	return t >= 0 && t < len(h.buf)
}

func (h *history[T]) at(t int) T {
	return h.buf[(h.head+t)%len(h.buf)]
}

func (h *history[T]) set(t int, v T) {
	h.buf[(h.head+t)%len(h.buf)] = v
}

func (h *history[T]) advance(fill T) {
	h.head = (h.head - 1 + len(h.buf)) % len(h.buf)
	h.buf[h.head] = fill
}

// dutyCycle is a sliding fraction of true samples over the last window ticks.
type dutyCycle struct {
	samples []bool
	next    int
	filled  int
	hits    int
}

func newDutyCycle(window int) dutyCycle {
	return dutyCycle{samples: make([]bool, window)}
}

func (d *dutyCycle) push(v bool) {
	if d.filled == len(d.samples) {
		if d.samples[d.next] {
			d.hits--
		}
	} else {
		d.filled++
	}
	d.samples[d.next] = v
	if v {
		d.hits++
	}
	d.next = (d.next + 1) % len(d.samples)
}

func (d *dutyCycle) value() float64 {
	if d.filled == 0 {
		return 0
	}
	return float64(d.hits) / float64(d.filled)
}
