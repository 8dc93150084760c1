package features

import (
	"fmt"
	"math"
	"sort"
)

// DefaultNeighbors is the neighbour count used when none is configured.
const DefaultNeighbors = 3

// KNNImputer fills missing numeric cells with the unweighted mean of the
// nearest rows that have the cell present. Distances are nan-euclidean:
// coordinates missing in either row are skipped and the sum is scaled up
// by the ratio of total to present coordinates.
type KNNImputer struct {
	Neighbors int
}

type neighbor struct {
	row  int
	dist float64
}

// Impute returns a copy of f with every missing cell filled. f must be all
// numeric. A cell whose row shares no present coordinate with any donor
// gets the column mean; a column with no present cells is filled with zero.
func (k KNNImputer) Impute(f *Frame) (*Frame, error) {
	n := k.Neighbors
	if n <= 0 {
		n = DefaultNeighbors
	}
	cols := f.Series()
	for _, s := range cols {
		if s.Kind != Numeric {
			return nil, fmt.Errorf("column %q is not numeric", s.Name)
		}
	}

	out := NewFrame(f.Rows())
	for _, s := range cols {
		filled := s.clone()
		donors := presentRows(s)

		mean := 0.0
		for _, r := range donors {
			mean += s.Num[r]
		}
		if len(donors) > 0 {
			mean /= float64(len(donors))
		}

		for i, v := range s.Num {
			if !math.IsNaN(v) {
				continue
			}
			if len(donors) == 0 {
				filled.Num[i] = 0
				continue
			}
			nearest := nearestDonors(cols, i, donors, n)
			if len(nearest) == 0 {
				filled.Num[i] = mean
				continue
			}
			sum := 0.0
			for _, nb := range nearest {
				sum += s.Num[nb.row]
			}
			filled.Num[i] = sum / float64(len(nearest))
		}
		if err := out.Add(filled); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func presentRows(s *Series) []int {
	var rows []int
	for i, v := range s.Num {
		if !math.IsNaN(v) {
			rows = append(rows, i)
		}
	}
	return rows
}

// nearestDonors returns up to n donors closest to row, nearest first.
// Ties keep row order.
func nearestDonors(cols []*Series, row int, donors []int, n int) []neighbor {
	cands := make([]neighbor, 0, len(donors))
	for _, d := range donors {
		if dist, ok := nanEuclidean(cols, row, d); ok {
			cands = append(cands, neighbor{row: d, dist: dist})
		}
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })
	if len(cands) > n {
		cands = cands[:n]
	}
	return cands
}

func nanEuclidean(cols []*Series, a, b int) (float64, bool) {
	var sum float64
	present := 0
	for _, s := range cols {
		x, y := s.Num[a], s.Num[b]
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		sum += (x - y) * (x - y)
		present++
	}
	if present == 0 {
		return 0, false
	}
	return math.Sqrt(float64(len(cols)) / float64(present) * sum), true
}
