package indicator

import "gonum.org/v1/gonum/stat"

// window keeps the most recent closes of a fixed-size trailing window.
type window struct {
	size int
	buf  []float64
}

func newWindow(size int) *window {
	return &window{size: size, buf: make([]float64, 0, size+1)}
}

func (w *window) Add(v float64) {
	w.buf = append(w.buf, v)
	if len(w.buf) > w.size {
		w.buf = w.buf[len(w.buf)-w.size:]
	}
}

// Full reports whether size values have been seen.
func (w *window) Full() bool {
	return len(w.buf) == w.size
}

// Mean is the simple average of the window. Only meaningful once Full.
func (w *window) Mean() float64 {
	return stat.Mean(w.buf, nil)
}
