/*
Package resolve implements the dependency resolver (spec component C6):
an iterative, name-sorted worklist algorithm that reduces a set of
top-level requirements to a flat, pinned (name, version) set consistent
with every constraint and the host interpreter version.

This is a best-effort, non-backtracking walk, not a SAT solver — see
spec.md §9's "Resolver completeness" design note.

Usage:
	r := resolve.New(registryClient)
	pinned, err := r.Resolve(ctx, reqs, pyVersion, nil)
*/
package resolve

import (
	"context"
	"fmt"
	"sort"

	"github.com/datawire/dlib/dlog"

	"github.com/dephub/pypkg/pkg/constraint"
	"github.com/dephub/pypkg/pkg/registry"
	"github.com/dephub/pypkg/pkg/requirement"
	"github.com/dephub/pypkg/pkg/version"
)

// Pinned is one entry of a resolved set: a concrete version chosen for a
// name, plus the index URL its metadata was fetched from (so the lock can
// record provenance per spec §4.5 without re-deriving it at sync time).
type Pinned struct {
	Name        string
	Version     version.Version
	MetadataURL string
}

// UnsatisfiableError reports that no version of Name satisfies Constraints.
type UnsatisfiableError struct {
	Name        string
	Constraints string
	Considered  []string // every candidate version string the index offered
}

func (e *UnsatisfiableError) Error() string {
	return fmt.Sprintf("no version of %q satisfies %q (considered: %v)", e.Name, e.Constraints, e.Considered)
}

// ConflictError reports that two dependents require mutually exclusive
// versions of a third package.
type ConflictError struct {
	Name       string
	Version1   string
	Version2   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting versions requested for %q: %q vs %q", e.Name, e.Version1, e.Version2)
}

// Resolver resolves top-level requirements against a registry.Client.
type Resolver struct {
	Index registry.Client
}

// New constructs a Resolver backed by the given index client.
func New(index registry.Client) *Resolver {
	return &Resolver{Index: index}
}

// entry is the resolver's working state for one package name.
type entry struct {
	displayName string
	constraints constraint.Constraints
	selected    *version.Version
	metadataURL string
}

// Resolve runs the algorithm described in spec §4.3: seed a worklist from
// the top-level requirements, repeatedly union constraints per name,
// query the index, pick the highest remaining compatible version, then
// push that version's own dependencies onto the worklist. Extras, when
// given, scope which of a package's conditional dependencies are pulled in
// (this engine does not evaluate environment markers beyond naming them;
// see requirement.ParsePEP508).
func (r *Resolver) Resolve(ctx context.Context, reqs []requirement.Req, pyVersion version.Version, extras []string) ([]Pinned, error) {
	state := map[string]*entry{}
	worklist := append([]requirement.Req(nil), reqs...)

	for len(worklist) > 0 {
		sort.SliceStable(worklist, func(i, j int) bool {
			return worklist[i].Name < worklist[j].Name
		})
		req := worklist[0]
		worklist = worklist[1:]

		key := normalizeName(req.Name)
		e, ok := state[key]
		if !ok {
			e = &entry{displayName: req.Name}
			state[key] = e
		}
		e.constraints = append(e.constraints, req.Constraints...)

		dlog.Debugf(ctx, "resolving %s %s", req.Name, e.constraints.String())

		pkg, err := r.Index.Package(ctx, req.Name)
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", req.Name, err)
		}

		candidates := filterCompatible(pkg, e.constraints, pyVersion)
		candidates = filterPyCompatible(pkg, candidates, pyVersion)
		if len(candidates) == 0 {
			considered := make([]string, len(pkg.Versions()))
			for i, v := range pkg.Versions() {
				considered[i] = v.String()
			}
			return nil, &UnsatisfiableError{Name: req.Name, Constraints: e.constraints.String(), Considered: considered}
		}

		chosen := highest(candidates)

		if e.selected != nil && !e.selected.Equal(chosen) {
			return nil, &ConflictError{Name: req.Name, Version1: e.selected.String(), Version2: chosen.String()}
		}
		e.selected = &chosen

		info, err := r.Index.VersionInfo(ctx, req.Name, chosen.String())
		if err != nil {
			return nil, fmt.Errorf("fetching %q %s: %w", req.Name, chosen.String(), err)
		}
		e.metadataURL = info.MetadataURL
		for _, raw := range info.RequiresDist {
			subReq, err := requirement.ParsePEP508(raw)
			if err != nil {
				continue // unparseable dependency lines are skipped, not fatal
			}
			if len(subReq.Extras) > 0 && !anyExtraRequested(subReq.Extras, extras) {
				continue
			}
			worklist = append(worklist, subReq)
		}
	}

	names := make([]string, 0, len(state))
	for name := range state {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Pinned, 0, len(state))
	for _, name := range names {
		out = append(out, Pinned{
			Name:        state[name].displayName,
			Version:     *state[name].selected,
			MetadataURL: state[name].metadataURL,
		})
	}
	return out, nil
}

func filterCompatible(pkg *registry.Package, cs constraint.Constraints, pyVersion version.Version) []version.Version {
	var out []version.Version
	for _, v := range pkg.Versions() {
		if !cs.IsCompatible(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// filterPyCompatible drops versions whose every published release declares
// a requires_python constraint the host interpreter doesn't satisfy. A
// version with no releases constraining requires_python, or with at least
// one release that's silent on it, is kept.
func filterPyCompatible(pkg *registry.Package, candidates []version.Version, pyVersion version.Version) []version.Version {
	out := make([]version.Version, 0, len(candidates))
	for _, v := range candidates {
		releases := pkg.ReleasesFor(v.Value())
		if len(releases) == 0 {
			out = append(out, v)
			continue
		}
		ok := false
		for _, rel := range releases {
			if rel.RequiresPython == "" {
				ok = true
				break
			}
			cs, err := constraint.ParseSet(rel.RequiresPython)
			if err != nil || cs.IsCompatible(pyVersion) {
				ok = true
				break
			}
		}
		if ok {
			out = append(out, v)
		}
	}
	return out
}

func highest(candidates []version.Version) version.Version {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Compare(best) > 0 {
			best = c
		}
	}
	return best
}

func anyExtraRequested(declared, requested []string) bool {
	for _, d := range declared {
		for _, r := range requested {
			if requirement.NameEqual(d, r) {
				return true
			}
		}
	}
	return false
}

func normalizeName(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
