/*
Package manifest reads and writes a project's declarative dependency
manifest: the `pyproject.toml`-shaped file naming the project's metadata,
its required distributions, and its optional extras ("features").

Like pkg/lock, this is a deliberately shallow, section-scanning parser,
not a general TOML implementation — no TOML library exists anywhere in
the corpus this engine was grounded on, and the manifest's own shape
(three fixed sections, flat key = "value" pairs) never needs one.

Usage:
	m, err := manifest.Parse(data)
	data := manifest.Render(m)
*/
package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dephub/pypkg/pkg/requirement"
)

// Manifest is the parsed contents of a project's dependency manifest.
type Manifest struct {
	Name        string
	Version     string
	Author      string
	Description string
	PyVersion   string // a constraint string, e.g. "^3.7"
	Reqs        []requirement.Req
	Extras      map[string][]string // feature name -> requirement lines
}

const (
	sectionNone = iota
	sectionMeta
	sectionDeps
	sectionExtras
)

var sectionRgx = regexp.MustCompile(`^\[.*\]$`)

// keyRgx matches a `key = "value"` metadata line.
func keyRgx(key string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(key) + `\s*=\s*"(.*)"$`)
}

// depLineRgx matches one dependency declaration: `name[extras] = "constraints"`.
var depLineRgx = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*(?:\[[^\]]*\])?)\s*=\s*"(.*)"$`)

// parseDepLine parses a `[tool.pypackage.dependencies]` line. A constraint
// value of "*" means "any version", matching requirement.Parse's own
// convention of an empty Constraints set.
func parseDepLine(line string) (requirement.Req, error) {
	m := depLineRgx.FindStringSubmatch(line)
	if m == nil {
		return requirement.Req{}, fmt.Errorf("expected name = \"constraints\", got %q", line)
	}
	if m[2] == "*" {
		return requirement.Parse(m[1])
	}
	return requirement.Parse(m[1] + " " + m[2])
}

// Parse reads a manifest's bytes into a Manifest. Unknown sections and
// unknown keys within [tool.pypackage] are ignored rather than rejected,
// so a manifest with extra tool-specific sections still parses cleanly.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{Extras: map[string][]string{}}

	section := sectionNone
	curExtra := ""

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch {
		case line == "[tool.pypackage]":
			section = sectionMeta
			continue
		case line == "[tool.pypackage.dependencies]":
			section = sectionDeps
			continue
		case line == "[tool.pypackage.features]":
			section = sectionExtras
			continue
		case sectionRgx.MatchString(line):
			section = sectionNone
			continue
		}

		switch section {
		case sectionMeta:
			if v, ok := matchKey(line, "name"); ok {
				m.Name = v
			} else if v, ok := matchKey(line, "version"); ok {
				m.Version = v
			} else if v, ok := matchKey(line, "author"); ok {
				m.Author = v
			} else if v, ok := matchKey(line, "description"); ok {
				m.Description = v
			} else if v, ok := matchKey(line, "py_version"); ok {
				m.PyVersion = v
			}
		case sectionDeps:
			req, err := parseDepLine(line)
			if err != nil {
				return nil, &ParseError{Line: lineNo, Reason: err.Error()}
			}
			m.Reqs = append(m.Reqs, req)
		case sectionExtras:
			// A feature line is either "featurename = [" opening a
			// block, a quoted requirement inside the block, or "]"
			// closing it; the original shorthand `feat = ["req"]`
			// on one line is also accepted.
			if curExtra == "" {
				name, rest, ok := splitFeatureHeader(line)
				if !ok {
					return nil, &ParseError{Line: lineNo, Reason: "expected feature = [...]"}
				}
				if inline, ok := inlineList(rest); ok {
					m.Extras[name] = inline
					continue
				}
				curExtra = name
				continue
			}
			if strings.TrimSpace(line) == "]" {
				curExtra = ""
				continue
			}
			entry := strings.Trim(strings.TrimSuffix(strings.TrimSpace(line), ","), `"`)
			if entry != "" {
				m.Extras[curExtra] = append(m.Extras[curExtra], entry)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return m, nil
}

func matchKey(line, key string) (string, bool) {
	m := keyRgx(key).FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func splitFeatureHeader(line string) (name, rest string, ok bool) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

func inlineList(rest string) ([]string, bool) {
	if !strings.HasPrefix(rest, "[") || !strings.HasSuffix(rest, "]") {
		return nil, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(rest, "["), "]")
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return []string{}, true
	}
	var out []string
	for _, part := range strings.Split(inner, ",") {
		out = append(out, strings.Trim(strings.TrimSpace(part), `"`))
	}
	return out, true
}

// Render produces the canonical on-disk form of m.
func Render(m *Manifest) []byte {
	var b bytes.Buffer

	b.WriteString("[tool.pypackage]\n")
	fmt.Fprintf(&b, "name = %q\n", m.Name)
	fmt.Fprintf(&b, "version = %q\n", m.Version)
	if m.Author != "" {
		fmt.Fprintf(&b, "author = %q\n", m.Author)
	}
	if m.Description != "" {
		fmt.Fprintf(&b, "description = %q\n", m.Description)
	}
	if m.PyVersion != "" {
		fmt.Fprintf(&b, "py_version = %q\n", m.PyVersion)
	}
	b.WriteString("\n")

	b.WriteString("[tool.pypackage.dependencies]\n")
	for _, r := range m.Reqs {
		b.WriteString(r.ToCfgString())
		b.WriteString("\n")
	}

	if len(m.Extras) > 0 {
		b.WriteString("\n[tool.pypackage.features]\n")
		names := make([]string, 0, len(m.Extras))
		for name := range m.Extras {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			quoted := make([]string, len(m.Extras[name]))
			for i, r := range m.Extras[name] {
				quoted[i] = fmt.Sprintf("%q", r)
			}
			fmt.Fprintf(&b, "%s = [%s]\n", name, strings.Join(quoted, ", "))
		}
	}

	return b.Bytes()
}

// ParseError reports a malformed manifest line.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("manifest line %d: %s", e.Line, e.Reason)
}
