/*
Package constraint parses operator-qualified version predicates and tests
candidate versions against them.

Grammar: `OP? VERSION`, where OP is one of `^ ~ = == != >= <= > <`; a
missing operator defaults to Caret. A constraint string may hold several
comma-separated clauses, all of which must match (an AND set).

Usage:
	cs, err := constraint.ParseSet(">=1.2.3,<2.0.0")
	cs.IsCompatible(v)
*/
package constraint

import (
	"fmt"
	"strings"

	"github.com/dephub/pypkg/pkg/version"
)

// ReqType identifies a constraint's comparison operator.
type ReqType int

// Supported operators.
const (
	Exact ReqType = iota
	Gte
	Lte
	Gt
	Lt
	Ne
	Caret
	Tilde
)

var opSymbol = map[ReqType]string{
	Exact: "==",
	Gte:   ">=",
	Lte:   "<=",
	Gt:    ">",
	Lt:    "<",
	Ne:    "!=",
	Caret: "^",
	Tilde: "~",
}

// opAliases maps every accepted operator spelling onto its ReqType.
var opAliases = map[string]ReqType{
	"^":  Caret,
	"~":  Tilde,
	"=":  Exact,
	"==": Exact,
	"!=": Ne,
	">=": Gte,
	"<=": Lte,
	">":  Gt,
	"<":  Lt,
}

// Constraint is a single (operator, version) predicate.
type Constraint struct {
	Type ReqType
	Ver  version.Version
}

// Constraints is a set of constraints that must all be satisfied (AND).
type Constraints []Constraint

// opsByLength lists operator symbols longest-first so "==" is tried
// before "=", etc.
var opsByLength = []string{"==", "!=", ">=", "<=", "^", "~", "=", ">", "<"}

// Parse parses a single comma-free constraint clause.
func Parse(raw string) (Constraint, error) {
	s := strings.TrimSpace(raw)
	op := ""
	for _, candidate := range opsByLength {
		if strings.HasPrefix(s, candidate) {
			op = candidate
			break
		}
	}
	verStr := strings.TrimSpace(strings.TrimPrefix(s, op))
	if verStr == "" {
		return Constraint{}, &ParseError{Value: raw, Reason: "missing version"}
	}

	typ := Caret
	if op != "" {
		var ok bool
		typ, ok = opAliases[op]
		if !ok {
			return Constraint{}, &ParseError{Value: raw, Reason: fmt.Sprintf("unsupported operator %q", op)}
		}
	}

	v, err := version.Parse(verStr)
	if err != nil {
		return Constraint{}, &ParseError{Value: raw, Reason: err.Error()}
	}

	// A bare wildcard version (no explicit operator) is always Exact,
	// per the data model: "A bare version with wildcard stars becomes
	// Exact with unspecified trailing components."
	if op == "" && (!v.HasMinor() || !v.HasPatch()) && strings.ContainsAny(verStr, "*xX") {
		typ = Exact
	}

	return Constraint{Type: typ, Ver: v}, nil
}

// ParseSet parses a comma-separated list of clauses into an AND set.
func ParseSet(raw string) (Constraints, error) {
	parts := strings.Split(raw, ",")
	out := make(Constraints, 0, len(parts))
	for _, p := range parts {
		c, err := Parse(p)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// IsCompatible reports whether candidate satisfies this single constraint.
func (c Constraint) IsCompatible(candidate version.Version) bool {
	switch c.Type {
	case Exact:
		return c.Ver.MatchesExact(candidate)
	case Ne:
		return !c.Ver.MatchesExact(candidate)
	case Gte:
		return candidate.Compare(c.Ver) >= 0
	case Lte:
		return candidate.Compare(c.Ver) <= 0
	case Gt:
		return candidate.Compare(c.Ver) > 0
	case Lt:
		return candidate.Compare(c.Ver) < 0
	case Caret:
		return caretCompatible(c.Ver, candidate)
	case Tilde:
		return tildeCompatible(c.Ver, candidate)
	}
	return false
}

// caretCompatible implements `^v`: candidate >= v and shares the leftmost
// nonzero component of v. If v is all zeros ("^0.0.0"), any version >= v
// is accepted, degrading gracefully to an unbounded range.
func caretCompatible(v, candidate version.Version) bool {
	if candidate.Compare(v) < 0 {
		return false
	}
	switch {
	case v.Major() != 0:
		return candidate.Major() == v.Major()
	case v.Minor() != 0:
		return candidate.Major() == 0 && candidate.Minor() == v.Minor()
	case v.Patch() != 0:
		return candidate.Major() == 0 && candidate.Minor() == 0 && candidate.Patch() == v.Patch()
	default:
		return true
	}
}

// tildeCompatible implements `~v`: candidate >= v, sharing major and,
// if minor was explicitly given, minor too.
func tildeCompatible(v, candidate version.Version) bool {
	if candidate.Compare(v) < 0 {
		return false
	}
	if candidate.Major() != v.Major() {
		return false
	}
	if v.HasMinor() {
		return candidate.Minor() == v.Minor()
	}
	return true
}

// IsCompatible reports whether candidate satisfies every constraint in the set.
func (cs Constraints) IsCompatible(candidate version.Version) bool {
	for _, c := range cs {
		if !c.IsCompatible(candidate) {
			return false
		}
	}
	return true
}

// String renders the canonical operator plus version.
func (c Constraint) String() string {
	return opSymbol[c.Type] + c.Ver.String()
}

// String joins every clause with ", ".
func (cs Constraints) String() string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

// ParseError reports a malformed constraint string.
type ParseError struct {
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("constraint %q: %s", e.Value, e.Reason)
}
