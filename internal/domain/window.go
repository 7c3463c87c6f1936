package domain

import "time"

// Window is the half-open interval [Start, End) a reservation claims.
// Construction does not validate; call Validate before use.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds a window without checking its bounds.
func NewWindow(start, end time.Time) Window {
	return Window{Start: start, End: end}
}

// WindowFromReservation returns the window claimed by r.
func WindowFromReservation(r Reservation) Window {
	return r.Window
}

// Validate reports ErrInvalidTimespan unless Start is strictly before End.
func (w Window) Validate() error {
	if !w.Start.Before(w.End) {
		return ErrInvalidTimespan
	}
	return nil
}

// Overlaps reports whether w and other share any instant.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Precision is the finest time resolution the stores keep.
const Precision = time.Microsecond

// Truncate drops the part of both bounds finer than Precision, giving the
// window exactly as it will be stored.
func (w Window) Truncate() Window {
	return Window{Start: w.Start.Truncate(Precision), End: w.End.Truncate(Precision)}
}

// UTC returns the window with both bounds converted to UTC.
func (w Window) UTC() Window {
	return Window{Start: w.Start.UTC(), End: w.End.UTC()}
}
