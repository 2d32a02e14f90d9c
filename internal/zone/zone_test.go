package zone

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(zs []Zone) []string {
	out := make([]string, 0, len(zs))
	for _, z := range zs {
		out = append(out, z.Label)
	}
	return out
}

func TestRect_ContainsInclusiveEdges(t *testing.T) {
	r := Rect{XMin: 0.2, XMax: 0.4, YMin: 0.6, YMax: 0.8}
	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"interior", Point{0.3, 0.7}, true},
		{"left edge", Point{0.2, 0.7}, true},
		{"right edge", Point{0.4, 0.7}, true},
		{"top edge", Point{0.3, 0.6}, true},
		{"bottom edge", Point{0.3, 0.8}, true},
		{"corner", Point{0.4, 0.8}, true},
		{"just left", Point{0.1999, 0.7}, false},
		{"just below", Point{0.3, 0.8001}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Contains(tt.p))
		})
	}
}

func TestClassifier_DefaultZones(t *testing.T) {
	c := NewClassifier(DefaultZones())
	tests := []struct {
		name string
		p    Point
		want []string
	}{
		{"bottom left quadrant", Point{0.25, 0.75}, []string{"zone1"}},
		{"top right quadrant", Point{0.75, 0.25}, []string{"zone2"}},
		{"bottom right quadrant", Point{0.75, 0.75}, []string{"zone3"}},
		{"top left quadrant", Point{0.25, 0.25}, []string{"zone4"}},
		{"vertical centre line", Point{0.5, 0.75}, []string{"zone1", "zone3"}},
		{"frame centre", Point{0.5, 0.5}, []string{"zone1", "zone2", "zone3", "zone4"}},
		{"outside frame", Point{1.2, 0.5}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, labels(c.Classify(tt.p)))
		})
	}
}

func TestClassifier_NoZones(t *testing.T) {
	c := NewClassifier(nil)
	assert.Empty(t, c.Classify(Point{0.5, 0.5}))
}

func TestClassifier_ZonesIsCopy(t *testing.T) {
	c := NewClassifier(DefaultZones())
	zs := c.Zones()
	zs[0].Label = "mutated"
	assert.Equal(t, "zone1", c.Zones()[0].Label)
}

func TestStreet_JSON(t *testing.T) {
	data, err := json.Marshal(StreetB)
	require.NoError(t, err)
	assert.JSONEq(t, `"B"`, string(data))

	var s Street
	require.NoError(t, json.Unmarshal([]byte(`"a"`), &s))
	assert.Equal(t, StreetA, s)

	assert.Error(t, json.Unmarshal([]byte(`"C"`), &s))
	_, err = json.Marshal(Street(7))
	assert.Error(t, err)
}

func TestStreet_Other(t *testing.T) {
	assert.Equal(t, StreetB, StreetA.Other())
	assert.Equal(t, StreetA, StreetB.Other())
}

func TestZone_JSONShape(t *testing.T) {
	var z Zone
	require.NoError(t, json.Unmarshal([]byte(`{"label":"north","street":"B","xmin":0.1,"xmax":0.2,"ymin":0.3,"ymax":0.4}`), &z))
	assert.Equal(t, Zone{Label: "north", Street: StreetB, Rect: Rect{XMin: 0.1, XMax: 0.2, YMin: 0.3, YMax: 0.4}}, z)
}
