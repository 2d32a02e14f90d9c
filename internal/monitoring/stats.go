package monitoring

import (
	"sync"

	"gonum.org/v1/gonum/stat"
)

// DefaultStatsWindow is the number of recent frames summarised by CountStats.
const DefaultStatsWindow = 300

// CountStats keeps a fixed-size ring of recent per-street counts. It is only
// a read-side summary for the API and never feeds back into switching.
type CountStats struct {
	mu   sync.Mutex
	a    []float64
	b    []float64
	next int
	full bool
}

// CountSummary is the JSON shape served by /api/stats.
type CountSummary struct {
	Frames  int     `json:"frames"`
	MeanA   float64 `json:"street_a_mean"`
	StdDevA float64 `json:"street_a_stddev"`
	MeanB   float64 `json:"street_b_mean"`
	StdDevB float64 `json:"street_b_stddev"`
	MaxA    int     `json:"street_a_max"`
	MaxB    int     `json:"street_b_max"`
}

// NewCountStats allocates a ring of the given size. A non-positive size uses
// DefaultStatsWindow.
func NewCountStats(window int) *CountStats {
	if window <= 0 {
		window = DefaultStatsWindow
	}
	return &CountStats{
		a: make([]float64, window),
		b: make([]float64, window),
	}
}

// Observe records one frame's street totals.
func (s *CountStats) Observe(countA, countB int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a[s.next] = float64(countA)
	s.b[s.next] = float64(countB)
	s.next++
	if s.next == len(s.a) {
		s.next = 0
		s.full = true
	}
}

// Summary returns mean, standard deviation and maximum per street over the
// frames currently held in the window.
func (s *CountStats) Summary() CountSummary {
	s.mu.Lock()
	n := s.next
	if s.full {
		n = len(s.a)
	}
	a := append([]float64(nil), s.a[:n]...)
	b := append([]float64(nil), s.b[:n]...)
	s.mu.Unlock()

	sum := CountSummary{Frames: n}
	if n == 0 {
		return sum
	}
	if n == 1 {
		sum.MeanA, sum.MeanB = a[0], b[0]
	} else {
		sum.MeanA, sum.StdDevA = stat.MeanStdDev(a, nil)
		sum.MeanB, sum.StdDevB = stat.MeanStdDev(b, nil)
	}
	sum.MaxA = int(maxOf(a))
	sum.MaxB = int(maxOf(b))
	return sum
}

func maxOf(x []float64) float64 {
	m := x[0]
	for _, v := range x[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
