// Package rule implements the boolean algebra used to describe cells: an
// immutable expression tree over signed surface ids with intersection,
// union and complement, a canonical text form, and De Morgan complements.
//
// The algebra is deliberately structural. It never simplifies: A∧A stays
// A∧A, and two rules are Equal only when their canonical texts match.
package rule

// Kind tags the node type of a Rule.
type Kind int

const (
	KindEmpty        Kind = iota // absence of a rule
	KindLiteral                  // signed surface id
	KindIntersection             // all children hold
	KindUnion                    // any child holds
	KindComplement               // child does not hold
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindLiteral:
		return "literal"
	case KindIntersection:
		return "intersection"
	case KindUnion:
		return "union"
	case KindComplement:
		return "complement"
	default:
		return "unknown"
	}
}

// Rule is an immutable boolean expression. The zero value is the empty
// rule. Rules share children freely; nothing ever mutates a built node.
type Rule struct {
	kind Kind
	id   int
	kids []Rule
}

// Literal returns the rule for one signed surface id. A positive id means
// the positive side of the surface. Literal(0) is the empty rule since 0 is
// never a valid surface number.
func Literal(id int) Rule {
	if id == 0 {
		return Rule{}
	}
	return Rule{kind: KindLiteral, id: id}
}

// Intersect returns a ∧ b. An empty operand yields the other operand.
func Intersect(a, b Rule) Rule {
	return All(a, b)
}

// Unite returns a ∨ b. An empty operand yields the other operand.
func Unite(a, b Rule) Rule {
	return Any(a, b)
}

// All returns the intersection of the non-empty rules given. No flattening
// of nested intersections is done.
func All(rules ...Rule) Rule {
	return nary(KindIntersection, rules)
}

// Any returns the union of the non-empty rules given.
func Any(rules ...Rule) Rule {
	return nary(KindUnion, rules)
}

// Literals is shorthand for All(Literal(ids[0]), Literal(ids[1]), ...).
func Literals(ids ...int) Rule {
	rs := make([]Rule, 0, len(ids))
	for _, id := range ids {
		rs = append(rs, Literal(id))
	}
	return All(rs...)
}

func nary(k Kind, rules []Rule) Rule {
	kids := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if !r.IsEmpty() {
			kids = append(kids, r)
		}
	}
	switch len(kids) {
	case 0:
		return Rule{}
	case 1:
		return kids[0]
	}
	return Rule{kind: k, kids: kids}
}

// Complement returns the complement node ¬a without transforming a. Use
// ComplementOf for the De Morgan form.
func Complement(a Rule) Rule {
	if a.IsEmpty() {
		return Rule{}
	}
	return Rule{kind: KindComplement, kids: []Rule{a}}
}

// Kind returns the node type.
func (r Rule) Kind() Kind { return r.kind }

// IsEmpty reports whether r is the empty rule.
func (r Rule) IsEmpty() bool { return r.kind == KindEmpty }

// ID returns the signed surface id of a literal, or 0.
func (r Rule) ID() int {
	if r.kind != KindLiteral {
		return 0
	}
	return r.id
}

// Children returns a copy of the child list.
func (r Rule) Children() []Rule {
	out := make([]Rule, len(r.kids))
	copy(out, r.kids)
	return out
}

// ComplementOf returns the complement of r pushed down to the literals:
// literal signs flip, intersections become unions and vice versa, and a
// Complement node collapses to its canonical child.
func ComplementOf(r Rule) Rule {
	switch r.kind {
	case KindLiteral:
		return Rule{kind: KindLiteral, id: -r.id}
	case KindIntersection, KindUnion:
		kind := KindUnion
		if r.kind == KindUnion {
			kind = KindIntersection
		}
		kids := make([]Rule, len(r.kids))
		for i, c := range r.kids {
			kids[i] = ComplementOf(c)
		}
		return Rule{kind: kind, kids: kids}
	case KindComplement:
		return Canonical(r.kids[0])
	}
	return Rule{}
}

// Canonical returns r with every Complement node replaced by its De Morgan
// form. Rules with no Complement nodes are returned structurally unchanged.
func Canonical(r Rule) Rule {
	switch r.kind {
	case KindIntersection, KindUnion:
		kids := make([]Rule, len(r.kids))
		for i, c := range r.kids {
			kids[i] = Canonical(c)
		}
		return Rule{kind: r.kind, kids: kids}
	case KindComplement:
		return ComplementOf(r.kids[0])
	}
	return r
}

// Equal reports whether a and b have the same canonical serialized form.
// Logically equivalent but structurally different rules are not Equal.
func Equal(a, b Rule) bool {
	return a.String() == b.String()
}

// Surfaces returns the distinct unsigned surface numbers referenced by r in
// first-use order.
func (r Rule) Surfaces() []int {
	var out []int
	seen := make(map[int]bool)
	r.walk(func(lit Rule) {
		n := lit.id
		if n < 0 {
			n = -n
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	})
	return out
}

// LiteralIDs returns every literal id in r, in order, with repeats.
func (r Rule) LiteralIDs() []int {
	var out []int
	r.walk(func(lit Rule) { out = append(out, lit.id) })
	return out
}

func (r Rule) walk(fn func(Rule)) {
	if r.kind == KindLiteral {
		fn(r)
		return
	}
	for _, c := range r.kids {
		c.walk(fn)
	}
}

// Substitute returns r with every reference to surface |from| replaced by
// |to|, keeping the sign of each literal.
func (r Rule) Substitute(from, to int) Rule {
	if from < 0 {
		from = -from
	}
	if to < 0 {
		to = -to
	}
	switch r.kind {
	case KindLiteral:
		switch r.id {
		case from:
			return Literal(to)
		case -from:
			return Literal(-to)
		}
		return r
	case KindIntersection, KindUnion, KindComplement:
		kids := make([]Rule, len(r.kids))
		for i, c := range r.kids {
			kids[i] = c.Substitute(from, to)
		}
		return Rule{kind: r.kind, kids: kids}
	}
	return r
}

// Eval reports whether a point lies in r, given sense(n) which returns true
// when the point is on the positive side of surface n (n > 0). The empty
// rule contains every point.
func (r Rule) Eval(sense func(n int) bool) bool {
	switch r.kind {
	case KindLiteral:
		if r.id > 0 {
			return sense(r.id)
		}
		return !sense(-r.id)
	case KindIntersection:
		for _, c := range r.kids {
			if !c.Eval(sense) {
				return false
			}
		}
		return true
	case KindUnion:
		for _, c := range r.kids {
			if c.Eval(sense) {
				return true
			}
		}
		return false
	case KindComplement:
		return !r.kids[0].Eval(sense)
	}
	return true
}
