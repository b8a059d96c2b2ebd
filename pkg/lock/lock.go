/*
Package lock serializes and deserializes the pinned dependency solution
(spec component C7) to and from the project's lock file.

The on-disk shape is a `[[package]]` array of tables, the same shape
`pypackage.lock`/`Cargo.lock`-style tools use. No third-party TOML
library exists anywhere in the example corpus this engine was grounded
on (see DESIGN.md), so the codec here is the same deliberately shallow,
line-oriented style spec.md's Design Note 1 prescribes for the manifest,
extended to the lock file's simpler, flatter shape.

Usage:
	l, err := lock.Decode(data)
	data, err := l.Encode()
*/
package lock

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// LockPackage is one pinned dependency's record.
type LockPackage struct {
	Name         string
	Version      string
	Source       string   // e.g. "pypi+https://pypi.org/pypi/requests/2.31.0/json"
	Dependencies []string // reserved for future per-package transitive recording; unused on the write path
}

// Lock is the full persisted resolution.
type Lock struct {
	Packages []LockPackage
	Metadata map[string]string
}

// Decode parses lock-file bytes. Missing optional fields deserialize to
// their zero value; unknown keys are ignored.
func Decode(data []byte) (*Lock, error) {
	l := &Lock{Metadata: map[string]string{}}

	var cur *LockPackage
	inMetadata := false

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch {
		case line == "[[package]]":
			if cur != nil {
				l.Packages = append(l.Packages, *cur)
			}
			cur = &LockPackage{}
			inMetadata = false
			continue
		case line == "[metadata]":
			if cur != nil {
				l.Packages = append(l.Packages, *cur)
				cur = nil
			}
			inMetadata = true
			continue
		case strings.HasPrefix(line, "["):
			// Unknown section: stop attributing keys to the
			// current package/metadata block, but don't fail.
			if cur != nil {
				l.Packages = append(l.Packages, *cur)
				cur = nil
			}
			inMetadata = false
			continue
		}

		key, value, ok := splitKV(line)
		if !ok {
			return nil, &ParseError{Line: lineNo, Reason: "expected key = value"}
		}

		switch {
		case inMetadata:
			l.Metadata[key] = unquote(value)
		case cur != nil:
			switch key {
			case "name":
				cur.Name = unquote(value)
			case "version":
				cur.Version = unquote(value)
			case "source":
				cur.Source = unquote(value)
			case "dependencies":
				cur.Dependencies = unquoteList(value)
			}
			// unknown keys inside a [[package]] block are ignored
		}
	}
	if cur != nil {
		l.Packages = append(l.Packages, *cur)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading lock file: %w", err)
	}
	return l, nil
}

// Encode renders the lock deterministically (packages sorted by name).
func (l *Lock) Encode() []byte {
	packages := append([]LockPackage(nil), l.Packages...)
	sort.SliceStable(packages, func(i, j int) bool { return packages[i].Name < packages[j].Name })

	var b bytes.Buffer
	for _, p := range packages {
		b.WriteString("[[package]]\n")
		fmt.Fprintf(&b, "name = %q\n", p.Name)
		fmt.Fprintf(&b, "version = %q\n", p.Version)
		if p.Source != "" {
			fmt.Fprintf(&b, "source = %q\n", p.Source)
		}
		if len(p.Dependencies) > 0 {
			quoted := make([]string, len(p.Dependencies))
			for i, d := range p.Dependencies {
				quoted[i] = strconv.Quote(d)
			}
			fmt.Fprintf(&b, "dependencies = [%s]\n", strings.Join(quoted, ", "))
		}
		b.WriteString("\n")
	}

	if len(l.Metadata) > 0 {
		keys := make([]string, 0, len(l.Metadata))
		for k := range l.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("[metadata]\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "%s = %q\n", k, l.Metadata[k])
		}
	}

	return b.Bytes()
}

// splitKV splits "key = value" on the first "=".
func splitKV(line string) (key, value string, ok bool) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if v, err := strconv.Unquote(s); err == nil {
			return v
		}
	}
	return s
}

func unquoteList(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, unquote(strings.TrimSpace(p)))
	}
	return out
}

// ParseError reports a malformed lock-file line.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("lock file line %d: %s", e.Line, e.Reason)
}
