/*
Package requirement parses a single manifest dependency line into a
structured requirement: a package name, zero or more version constraints,
and an optional extras list.

Usage:
	req, err := requirement.Parse(`requests[security] >=2.20,<3.0`)
*/
package requirement

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dephub/pypkg/pkg/constraint"
)

// lineRgx splits "name[extra1,extra2] rest-of-constraints" into its parts.
// Package names follow PEP 503: letters, digits, ., -, _.
var lineRgx = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)\s*(?:\[([^\]]*)\])?\s*(.*?)\s*$`)

// Req is a top-level or transitive dependency declaration.
type Req struct {
	Name        string
	Constraints constraint.Constraints
	Extras      []string
	// SourceType optionally tags where this requirement came from
	// (e.g. "pypi", "git"); empty unless the manifest line specified one.
	SourceType string
}

// Parse parses one requirement line. A line with no constraints at all
// (just a bare name, optionally with extras) yields a Req with an empty
// Constraints set, meaning "any version".
func Parse(line string) (Req, error) {
	m := lineRgx.FindStringSubmatch(line)
	if m == nil || m[1] == "" {
		return Req{}, &ParseError{Value: line, Reason: "cannot find a package name"}
	}

	req := Req{Name: m[1]}

	if m[2] != "" {
		for _, e := range strings.Split(m[2], ",") {
			e = strings.TrimSpace(e)
			if e != "" {
				req.Extras = append(req.Extras, e)
			}
		}
	}

	rest := strings.TrimSpace(m[3])
	if rest != "" {
		cs, err := constraint.ParseSet(rest)
		if err != nil {
			return Req{}, &ParseError{Value: line, Reason: err.Error()}
		}
		req.Constraints = cs
	}

	return req, nil
}

// ParsePEP508 parses a PyPI "requires_dist" entry, e.g.
// `urllib3 (>=1.21.1,<1.27) ; extra == "socks"`. The environment marker
// (everything after ";") is dropped: extras-conditioned dependencies are
// named but not evaluated, per the engine's extras Non-goal. Constraint
// clauses wrapped in parentheses are unwrapped before delegating to Parse.
func ParsePEP508(line string) (Req, error) {
	if idx := strings.Index(line, ";"); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)

	if idx := strings.Index(line, "("); idx >= 0 {
		end := strings.Index(line, ")")
		if end < idx {
			return Req{}, &ParseError{Value: line, Reason: "unbalanced parentheses"}
		}
		line = strings.TrimSpace(line[:idx]) + " " + strings.TrimSpace(line[idx+1:end])
	}

	return Parse(line)
}

// NameEqual compares two requirement names case-insensitively, per the
// engine-wide rule that package names compare case-insensitively but
// preserve their original casing for display.
func NameEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}

// ToCfgString renders the manifest line form: `name[extras] = "op ver, op ver"`,
// with a bare `name = "*"` when there are no constraints.
func (r Req) ToCfgString() string {
	name := r.Name
	if len(r.Extras) > 0 {
		name = fmt.Sprintf("%s[%s]", name, strings.Join(r.Extras, ","))
	}
	if len(r.Constraints) == 0 {
		return fmt.Sprintf("%s = \"*\"", name)
	}
	return fmt.Sprintf("%s = %q", name, r.Constraints.String())
}

// ParseError reports a malformed requirement line.
type ParseError struct {
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("requirement %q: %s", e.Value, e.Reason)
}
