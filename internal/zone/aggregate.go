package zone

import "fmt"

// FrameCount is the per-frame vehicle total for each street.
type FrameCount struct {
	A int `json:"street_a_count"`
	B int `json:"street_b_count"`
}

func (c FrameCount) String() string {
	return fmt.Sprintf("Street A = %d | Street B = %d", c.A, c.B)
}

// Aggregate sums zone matches for one frame. matches holds one slice per
// accepted detection. A detection matching zones on both streets adds to
// both totals.
func Aggregate(matches [][]Zone) FrameCount {
	var fc FrameCount
	for _, m := range matches {
		for _, z := range m {
			switch z.Street {
			case StreetA:
				fc.A++
			case StreetB:
				fc.B++
			}
		}
	}
	return fc
}

// Count classifies each centre and aggregates the result in one pass.
func (c *Classifier) Count(centres []Point) FrameCount {
	matches := make([][]Zone, 0, len(centres))
	for _, p := range centres {
		matches = append(matches, c.Classify(p))
	}
	return Aggregate(matches)
}
