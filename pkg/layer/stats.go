package layer

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Stats summarises the deltas held by a layer.
type Stats struct {
	Edited   int     // pixels whose delta is non-zero
	Mean     float64 // mean signed delta over edited pixels
	StdDev   float64 // standard deviation of the signed delta over edited pixels
	MinDelta int
	MaxDelta int
}

// Summarize computes [Stats] for the layer. A neutral layer yields zero Stats.
func Summarize(l *EditLayer) Stats {
	var deltas []float64
	s := Stats{MinDelta: math.MaxInt, MaxDelta: math.MinInt}
	for y := 0; y < l.Height(); y++ {
		for x := 0; x < l.Width(); x++ {
			d := l.Delta(x, y)
			if d == 0 {
				continue
			}
			deltas = append(deltas, float64(d))
			s.MinDelta = min(s.MinDelta, d)
			s.MaxDelta = max(s.MaxDelta, d)
		}
	}
	if len(deltas) == 0 {
		return Stats{}
	}
	s.Edited = len(deltas)
	s.Mean, s.StdDev = stat.MeanStdDev(deltas, nil)
	if math.IsNaN(s.StdDev) {
		s.StdDev = 0
	}
	return s
}
