package attach

import "fmt"

// IndexError is returned when a link index is outside the frame's ports.
type IndexError struct {
	Index int // signed index as given by the caller
	Size  int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("attach: link index %d out of range (frame has %d links)", e.Index, e.Size)
}

// DegenerateGeometryError is returned when a frame cannot be built from the
// given directions.
type DegenerateGeometryError struct {
	Op     string
	Reason string
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("attach: %s: degenerate geometry: %s", e.Op, e.Reason)
}

// EmptyLinkError is returned when a frame is derived from a port that has
// no connection point or axis yet.
type EmptyLinkError struct {
	Index int
	Field string
}

func (e *EmptyLinkError) Error() string {
	return fmt.Sprintf("attach: link %d has no %s", e.Index, e.Field)
}
