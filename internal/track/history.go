package track

import "gonum.org/v1/gonum/mat"

// Sample is one entry in a track's bounded history: the measurement
// that was fused at time T together with the filtered state and
// covariance that resulted. All fields are copies owned by the sample.
type Sample struct {
	T float64
	Z []float64     // measurement, length ndim
	X *mat.VecDense // filtered state, length 2*ndim
	P *mat.Dense    // filtered covariance, 2*ndim x 2*ndim
}

// history is a fixed-capacity ring buffer of samples. Once full, each
// push overwrites the oldest entry.
type history struct {
	buf  []Sample
	head int // index of the oldest entry
	n    int
}

func newHistory(capacity int) *history {
	return &history{buf: make([]Sample, capacity)}
}

func (h *history) push(s Sample) {
	if h.n < len(h.buf) {
		h.buf[(h.head+h.n)%len(h.buf)] = s
		h.n++
		return
	}
	h.buf[h.head] = s
	h.head = (h.head + 1) % len(h.buf)
}

func (h *history) len() int { return h.n }

// samples returns the entries oldest-first in a freshly allocated slice.
func (h *history) samples() []Sample {
	out := make([]Sample, h.n)
	for i := 0; i < h.n; i++ {
		out[i] = h.buf[(h.head+i)%len(h.buf)]
	}
	return out
}
