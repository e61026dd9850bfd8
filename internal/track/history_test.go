package track

import "testing"

func TestHistoryBelowCapacity(t *testing.T) {
	h := newHistory(4)
	h.push(Sample{T: 1})
	h.push(Sample{T: 2})

	if h.len() != 2 {
		t.Fatalf("len = %d, want 2", h.len())
	}
	got := h.samples()
	if got[0].T != 1 || got[1].T != 2 {
		t.Errorf("samples out of order: %v, %v", got[0].T, got[1].T)
	}
}

func TestHistoryDropsOldestAtCapacity(t *testing.T) {
	h := newHistory(3)
	for i := 1; i <= 5; i++ {
		h.push(Sample{T: float64(i)})
	}

	if h.len() != 3 {
		t.Fatalf("len = %d, want 3", h.len())
	}
	got := h.samples()
	for i, want := range []float64{3, 4, 5} {
		if got[i].T != want {
			t.Errorf("samples[%d].T = %v, want %v", i, got[i].T, want)
		}
	}
}

func TestHistoryCapacityOne(t *testing.T) {
	h := newHistory(1)
	h.push(Sample{T: 1})
	h.push(Sample{T: 2})

	got := h.samples()
	if len(got) != 1 || got[0].T != 2 {
		t.Errorf("samples = %+v, want single entry T=2", got)
	}
}
