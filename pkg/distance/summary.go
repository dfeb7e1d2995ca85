package distance

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"maurerdist/internal/models"
)

// Summary describes the value distribution of a distance map.
// Sentinel entries are counted but excluded from the statistics.
type Summary struct {
	Min, Max     float64
	Mean, StdDev float64

	Negative int
	Positive int
	Zero     int
	Sentinel int
}

// Summarize computes a Summary for vol
func Summarize(vol *models.DistanceVolume) Summary {
	var s Summary
	values := make([]float64, 0, len(vol.Data))

	for _, v := range vol.Data {
		d := float64(v)
		if math.Abs(d) >= Sentinel {
			s.Sentinel++
			continue
		}
		switch {
		case d < 0:
			s.Negative++
		case d > 0:
			s.Positive++
		default:
			s.Zero++
		}
		values = append(values, d)
	}

	if len(values) == 0 {
		return s
	}

	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		s.StdDev = 0
	}
	return s
}
