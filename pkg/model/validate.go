package model

import (
	"fmt"
	"sort"
)

// Severity says whether a finding fails the build or is advisory.
type Severity int

const (
	SeverityError   Severity = iota // fails the build
	SeverityWarning                 // advisory
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Finding is one validation result.
type Finding struct {
	Code     string
	Message  string
	Owner    string // component key name, empty for session-level findings
	Cell     int    // 0 when not about a cell
	Severity Severity
}

func (f Finding) Error() string {
	switch {
	case f.Cell != 0:
		return fmt.Sprintf("[%s] %s: cell %d: %s", f.Severity, f.Code, f.Cell, f.Message)
	case f.Owner != "":
		return fmt.Sprintf("[%s] %s: %s: %s", f.Severity, f.Code, f.Owner, f.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Code, f.Message)
}

// ValidationResult separates blocking errors from warnings.
type ValidationResult struct {
	Errors   []Finding
	Warnings []Finding
}

// OK reports whether there are no errors.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Validate checks a finished session. It never mutates the session.
//
//   - DANGLING_SURFACE: a cell rule uses a surface number nobody defined.
//   - CELL_OUTSIDE_BLOCK: a cell number lies outside its owner's block.
//   - UNKNOWN_OWNER: a cell's owner has no reserved block.
//   - UNUSED_SURFACE (warning): a defined surface appears in no cell.
//   - NO_CELLS (warning): a registered component emitted no cells.
func Validate(s *Session) ValidationResult {
	var res ValidationResult
	for _, f := range append(validateCells(s), validateUsage(s)...) {
		if f.Severity == SeverityWarning {
			res.Warnings = append(res.Warnings, f)
		} else {
			res.Errors = append(res.Errors, f)
		}
	}
	return res
}

func validateCells(s *Session) []Finding {
	var out []Finding
	for _, c := range s.cells {
		entry, err := s.Surfaces.Entry(c.Owner)
		if err != nil {
			out = append(out, Finding{
				Code:     "UNKNOWN_OWNER",
				Message:  fmt.Sprintf("owner %q has no reserved block", c.Owner),
				Owner:    c.Owner,
				Cell:     c.Number,
				Severity: SeverityError,
			})
		} else if !entry.Contains(c.Number) {
			out = append(out, Finding{
				Code:     "CELL_OUTSIDE_BLOCK",
				Message:  fmt.Sprintf("number outside block [%d, %d)", entry.CellBase, entry.CellBase+entry.Count),
				Owner:    c.Owner,
				Cell:     c.Number,
				Severity: SeverityError,
			})
		}
		for _, id := range c.Rule.Surfaces() {
			if _, ok := s.Surfaces.Surface(id); !ok {
				out = append(out, Finding{
					Code:     "DANGLING_SURFACE",
					Message:  fmt.Sprintf("surface %d is not defined", id),
					Owner:    c.Owner,
					Cell:     c.Number,
					Severity: SeverityError,
				})
			}
		}
	}
	return out
}

func validateUsage(s *Session) []Finding {
	var out []Finding
	used := make(map[int]bool)
	owners := make(map[string]bool)
	for _, c := range s.cells {
		owners[c.Owner] = true
		for _, id := range c.Rule.Surfaces() {
			used[id] = true
		}
	}
	for _, n := range s.Surfaces.Surfaces() {
		if used[n.ID] {
			continue
		}
		owner := ""
		if e, ok := s.Surfaces.Owner(n.ID); ok {
			owner = e.Name
		}
		out = append(out, Finding{
			Code:     "UNUSED_SURFACE",
			Message:  fmt.Sprintf("surface %d is not used by any cell", n.ID),
			Owner:    owner,
			Severity: SeverityWarning,
		})
	}
	names := s.Objects.Names()
	sort.Strings(names)
	for _, name := range names {
		if !owners[name] {
			out = append(out, Finding{
				Code:     "NO_CELLS",
				Message:  "component emitted no cells",
				Owner:    name,
				Severity: SeverityWarning,
			})
		}
	}
	return out
}
