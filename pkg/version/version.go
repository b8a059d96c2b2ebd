/*
Package version parses, orders, renders, and compares Python distribution
versions.

Three grammars are accepted, same as the ecosystems this engine draws
from (pip's PEP 440 subset, and the compact interpreter tags PyPI embeds
in wheel filenames):

	1.2.3          dotted numeric, optionally with a pre/post-release suffix
	1.2.3.dev1     dev/alpha/beta/rc/post suffix, optional trailing digits
	cp37, py3      compact interpreter tag -> (3, 7, 0) / (3, 0, 0)
	1.2.*          wildcard: trailing components left unspecified

Usage:
	v, err := version.Parse("1.2.3rc1")
*/
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ModKind ranks a version's pre/post-release modifier. The zero value is
// ModDev so an explicit ordering constant must always be assigned; ModNone
// is the modifier of a version with no suffix at all.
type ModKind int

// Modifier ranks, low to high, per the data model: dev < alpha < beta < rc < none < post.
const (
	ModDev ModKind = iota
	ModAlpha
	ModBeta
	ModRC
	ModNone
	ModPost
)

// canonical spelling used when rendering a modifier.
var modSpelling = map[ModKind]string{
	ModDev:   "dev",
	ModAlpha: "alpha",
	ModBeta:  "beta",
	ModRC:    "rc",
	ModPost:  "post",
}

// modAliases maps every suffix spelling the parser accepts onto its ModKind.
var modAliases = map[string]ModKind{
	"dev":   ModDev,
	"a":     ModAlpha,
	"alpha": ModAlpha,
	"b":     ModBeta,
	"beta":  ModBeta,
	"rc":    ModRC,
	"c":     ModRC,
	"post":  ModPost,
}

// vcfg holds the compiled expressions for all three accepted grammars.
type vcfg struct {
	dotted   *regexp.Regexp
	tag      *regexp.Regexp
	wildcard *regexp.Regexp
}

var cfg vcfg

func init() {
	// v?MAJOR(.MINOR)?(.PATCH)?(.EXTRA)?(-SUFFIX N?)?
	cfg.dotted = regexp.MustCompile(
		`^[vV]?(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:\.(\d+))?(?:[-._]?(dev|alpha|a|beta|b|rc|c|post)(\d*))?$`,
	)
	// cpNN or pyNN, e.g. cp37, py39
	cfg.tag = regexp.MustCompile(`^(?:cp|py)(\d)(\d+)?$`)
	// v?MAJOR(.MINOR|.*)?(.PATCH|.*)?
	cfg.wildcard = regexp.MustCompile(
		`^[vV]?([0-9]+|[*xX]+)(?:\.([0-9]+|[*xX]+))?(?:\.([0-9]+|[*xX]+))?$`,
	)
}

// Version is an immutable, parsed distribution version.
type Version struct {
	raw                  string
	major                int
	minor, patch, extra  *int
	modKind              ModKind
	modN                 int
}

// Parse parses value using whichever of the three grammars matches.
func Parse(value string) (Version, error) {
	if v, ok, err := parseDotted(value); ok {
		return v, err
	}
	if v, ok, err := parseTag(value); ok {
		return v, err
	}
	if v, ok, err := parseWildcard(value); ok {
		return v, err
	}
	return Version{}, &ParseError{Kind: "version", Value: value, Reason: "no grammar matched"}
}

func parseDotted(value string) (Version, bool, error) {
	m := cfg.dotted.FindStringSubmatch(value)
	if m == nil {
		return Version{}, false, nil
	}
	v := Version{raw: value, modKind: ModNone}
	var err error
	if v.major, err = atoi(m[1]); err != nil {
		return Version{}, true, &ParseError{Kind: "version", Value: value, Reason: err.Error()}
	}
	if v.minor, err = atoiPtr(m[2]); err != nil {
		return Version{}, true, &ParseError{Kind: "version", Value: value, Reason: err.Error()}
	}
	if v.patch, err = atoiPtr(m[3]); err != nil {
		return Version{}, true, &ParseError{Kind: "version", Value: value, Reason: err.Error()}
	}
	if v.extra, err = atoiPtr(m[4]); err != nil {
		return Version{}, true, &ParseError{Kind: "version", Value: value, Reason: err.Error()}
	}
	if m[5] != "" {
		kind, ok := modAliases[m[5]]
		if !ok {
			return Version{}, true, &ParseError{Kind: "version", Value: value, Reason: "unknown modifier " + m[5]}
		}
		v.modKind = kind
		if m[6] != "" {
			n, err := strconv.Atoi(m[6])
			if err != nil {
				return Version{}, true, &ParseError{Kind: "version", Value: value, Reason: err.Error()}
			}
			v.modN = n
		}
	}
	return v, true, nil
}

func parseTag(value string) (Version, bool, error) {
	m := cfg.tag.FindStringSubmatch(strings.ToLower(value))
	if m == nil {
		return Version{}, false, nil
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return Version{}, true, &ParseError{Kind: "version", Value: value, Reason: err.Error()}
	}
	v := Version{raw: value, major: major, modKind: ModNone}
	if m[2] != "" {
		minor, err := strconv.Atoi(m[2])
		if err != nil {
			return Version{}, true, &ParseError{Kind: "version", Value: value, Reason: err.Error()}
		}
		v.minor = &minor
	}
	zero := 0
	v.patch = &zero
	return v, true, nil
}

func parseWildcard(value string) (Version, bool, error) {
	m := cfg.wildcard.FindStringSubmatch(value)
	if m == nil {
		return Version{}, false, nil
	}
	if !isWild(m[1]) && m[2] == "" && m[3] == "" {
		// Plain "123" with no dots: let the dotted grammar own this shape.
		if _, err := strconv.Atoi(m[1]); err == nil {
			return Version{}, false, nil
		}
	}
	v := Version{raw: value, modKind: ModNone}
	if isWild(m[1]) {
		return Version{}, true, &ParseError{Kind: "version", Value: value, Reason: "major component cannot be a wildcard"}
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return Version{}, true, &ParseError{Kind: "version", Value: value, Reason: err.Error()}
	}
	v.major = major

	if m[2] != "" && !isWild(m[2]) {
		minor, err := strconv.Atoi(m[2])
		if err != nil {
			return Version{}, true, &ParseError{Kind: "version", Value: value, Reason: err.Error()}
		}
		v.minor = &minor
	}
	if m[3] != "" && !isWild(m[3]) {
		patch, err := strconv.Atoi(m[3])
		if err != nil {
			return Version{}, true, &ParseError{Kind: "version", Value: value, Reason: err.Error()}
		}
		v.patch = &patch
	}
	return v, true, nil
}

func isWild(s string) bool {
	return s == "*" || strings.EqualFold(s, "x")
}

func atoi(s string) (int, error) {
	return strconv.Atoi(s)
}

func atoiPtr(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	s = strings.TrimPrefix(s, ".")
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Major returns the required first component.
func (v Version) Major() int { return v.major }

// Minor returns the second component, or 0 if unspecified.
func (v Version) Minor() int { return deref(v.minor) }

// Patch returns the third component, or 0 if unspecified.
func (v Version) Patch() int { return deref(v.patch) }

// Extra returns the fourth component, or 0 if unspecified.
func (v Version) Extra() int { return deref(v.extra) }

// HasMinor reports whether the minor component was present in the parsed text.
func (v Version) HasMinor() bool { return v.minor != nil }

// HasPatch reports whether the patch component was present in the parsed text.
func (v Version) HasPatch() bool { return v.patch != nil }

// HasExtra reports whether the extra component was present in the parsed text.
func (v Version) HasExtra() bool { return v.extra != nil }

// ModKind returns the version's pre/post-release modifier kind.
func (v Version) ModKind() ModKind { return v.modKind }

// ModN returns the modifier's numeric suffix (0 if none was given).
func (v Version) ModN() int { return v.modN }

// Value returns the original, unmodified parsed string.
func (v Version) Value() string { return v.raw }

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// Compare orders two versions: negative if v < o, 0 if equal, positive if v > o.
// Absent trailing components default to 0, per the data model.
func (v Version) Compare(o Version) int {
	if d := v.major - o.major; d != 0 {
		return d
	}
	if d := v.Minor() - o.Minor(); d != 0 {
		return d
	}
	if d := v.Patch() - o.Patch(); d != 0 {
		return d
	}
	if d := v.Extra() - o.Extra(); d != 0 {
		return d
	}
	if d := int(v.modKind) - int(o.modKind); d != 0 {
		return d
	}
	return v.modN - o.modN
}

// Equal reports whether two versions compare equal (nil components default to 0).
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// Less reports whether v orders strictly before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// MatchesExact implements the Constraint "Exact" semantics: unspecified
// trailing components of v match any value in the candidate.
func (v Version) MatchesExact(candidate Version) bool {
	if v.major != candidate.major {
		return false
	}
	if v.HasMinor() && v.Minor() != candidate.Minor() {
		return false
	}
	if v.HasPatch() && v.Patch() != candidate.Patch() {
		return false
	}
	if v.HasExtra() && v.Extra() != candidate.Extra() {
		return false
	}
	return true
}

// IsPrerelease reports whether the version has a dev/alpha/beta/rc modifier
// (used to skip pre-releases when picking a "latest stable" version).
func (v Version) IsPrerelease() bool {
	return v.modKind == ModDev || v.modKind == ModAlpha || v.modKind == ModBeta || v.modKind == ModRC
}

// String renders the canonical form: absent trailing components are
// omitted, and the modifier uses its canonical spelling with its number
// omitted when zero.
func (v Version) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", v.major)
	if v.minor != nil {
		fmt.Fprintf(&b, ".%d", *v.minor)
	}
	if v.patch != nil {
		fmt.Fprintf(&b, ".%d", *v.patch)
	}
	if v.extra != nil {
		fmt.Fprintf(&b, ".%d", *v.extra)
	}
	if v.modKind != ModNone {
		b.WriteString(modSpelling[v.modKind])
		if v.modN != 0 {
			fmt.Fprintf(&b, "%d", v.modN)
		}
	}
	return b.String()
}

// ParseError reports a malformed version string.
type ParseError struct {
	Kind   string // "version"
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Kind, e.Value, e.Reason)
}
