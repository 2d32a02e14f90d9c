// Package status persists the controller's externally observable snapshot:
// the preferred street and the street totals that caused the last switch.
package status

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/intersection/internal/zone"
)

// Record is the snapshot read by the display and by actuators. Each write
// replaces the previous one; no history is kept.
type Record struct {
	PreferredStreet zone.Street `json:"preferred_street"`
	StreetACount    int         `json:"street_a_count"`
	StreetBCount    int         `json:"street_b_count"`
}

// NewRecord builds a Record from a street and a frame count.
func NewRecord(preferred zone.Street, fc zone.FrameCount) Record {
	return Record{
		PreferredStreet: preferred,
		StreetACount:    fc.A,
		StreetBCount:    fc.B,
	}
}

func (r Record) String() string {
	return fmt.Sprintf("preferred=%s A=%d B=%d", r.PreferredStreet, r.StreetACount, r.StreetBCount)
}

// Sink receives status snapshots.
type Sink interface {
	Write(ctx context.Context, rec Record) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, rec Record) error

func (f SinkFunc) Write(ctx context.Context, rec Record) error { return f(ctx, rec) }

// Multi fans a record out to every sink. All sinks are attempted even if an
// earlier one fails; the joined error reports each failure.
type Multi []Sink

func (m Multi) Write(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
