package registry

import "fmt"

// DuplicateNameError is returned when a name is reserved or registered twice.
type DuplicateNameError struct {
	Name string
	What string // "surface block" or "object"
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("registry: %s %q already registered", e.What, e.Name)
}

// NotFoundError is returned for lookups of unregistered names.
type NotFoundError struct {
	Name string
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("registry: no %s named %q", e.What, e.Name)
}

// CapabilityError is returned when a registered object does not provide the
// requested capability.
type CapabilityError struct {
	Name string
	Want string
	Got  string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("registry: object %q is %s, not %s", e.Name, e.Got, e.Want)
}

// RangeError is returned when an offset falls outside a component's block.
type RangeError struct {
	Name   string
	Offset int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("registry: offset %d outside block of %q [0,%d)", e.Offset, e.Name, BlockSize)
}

// DuplicateSurfaceError is returned when a surface number is defined twice.
type DuplicateSurfaceError struct {
	ID int
}

func (e *DuplicateSurfaceError) Error() string {
	return fmt.Sprintf("registry: surface %d already defined", e.ID)
}
