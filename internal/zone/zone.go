// Package zone maps detection centres onto the four street zones of the
// camera frame and sums the matches into per-street totals.
package zone

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Street identifies one of the two traffic directions.
type Street int

const (
	StreetA Street = iota
	StreetB
)

func (s Street) String() string {
	switch s {
	case StreetA:
		return "A"
	case StreetB:
		return "B"
	default:
		return fmt.Sprintf("Street(%d)", int(s))
	}
}

// Other returns the opposite street.
func (s Street) Other() Street {
	if s == StreetA {
		return StreetB
	}
	return StreetA
}

// ParseStreet accepts "A" or "B" in either case.
func ParseStreet(v string) (Street, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "A":
		return StreetA, nil
	case "B":
		return StreetB, nil
	default:
		return 0, fmt.Errorf("unknown street %q: expected A or B", v)
	}
}

// MarshalJSON encodes the street as "A" or "B".
func (s Street) MarshalJSON() ([]byte, error) {
	if s != StreetA && s != StreetB {
		return nil, fmt.Errorf("cannot encode %s", s)
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes "A" or "B".
func (s *Street) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := ParseStreet(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Point is a position in normalised [0,1] frame coordinates.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in normalised frame coordinates.
type Rect struct {
	XMin float64 `json:"xmin"`
	XMax float64 `json:"xmax"`
	YMin float64 `json:"ymin"`
	YMax float64 `json:"ymax"`
}

// Contains reports whether p lies inside r. All four edges are inclusive, so
// a point on a shared border belongs to both neighbouring rectangles.
func (r Rect) Contains(p Point) bool {
	return r.XMin <= p.X && p.X <= r.XMax && r.YMin <= p.Y && p.Y <= r.YMax
}

// Zone is a labelled rectangle assigned to exactly one street.
type Zone struct {
	Label  string `json:"label"`
	Street Street `json:"street"`
	Rect
}

// DefaultZones returns the stock diagonal-quadrant layout. The street A and
// street B quadrants share their inner edges, so a vehicle sitting on the
// frame centre lines is counted for both streets.
func DefaultZones() []Zone {
	return []Zone{
		{Label: "zone1", Street: StreetA, Rect: Rect{XMin: 0.0, XMax: 0.5, YMin: 0.5, YMax: 1.0}},
		{Label: "zone2", Street: StreetA, Rect: Rect{XMin: 0.5, XMax: 1.0, YMin: 0.0, YMax: 0.5}},
		{Label: "zone3", Street: StreetB, Rect: Rect{XMin: 0.5, XMax: 1.0, YMin: 0.5, YMax: 1.0}},
		{Label: "zone4", Street: StreetB, Rect: Rect{XMin: 0.0, XMax: 0.5, YMin: 0.0, YMax: 0.5}},
	}
}

// Classifier holds the configured zones. Zones are taken as given; overlaps
// and out-of-range rectangles are the operator's responsibility.
type Classifier struct {
	zones []Zone
}

// NewClassifier copies zones into a new Classifier.
func NewClassifier(zones []Zone) *Classifier {
	return &Classifier{zones: append([]Zone(nil), zones...)}
}

// Zones returns a copy of the configured zones.
func (c *Classifier) Zones() []Zone {
	return append([]Zone(nil), c.zones...)
}

// Classify returns every zone containing p, in configuration order. Each
// match counts independently.
func (c *Classifier) Classify(p Point) []Zone {
	var matches []Zone
	for _, z := range c.zones {
		if z.Contains(p) {
			matches = append(matches, z)
		}
	}
	return matches
}
