/*
Package registry is the index-client contract (spec component C4) plus a
concrete implementation against the PyPI JSON API.

Usage:
	cl := registry.NewPyPI(nil, nil)
	pkg, err := cl.Package(ctx, "requests")
*/
package registry

import (
	"context"
	"fmt"

	"github.com/dephub/pypkg/pkg/version"
)

// PackageType identifies the kind of distribution artifact a release is.
type PackageType string

// Package types the index can report, matching PyPI's own vocabulary.
const (
	Wheel PackageType = "bdist_wheel"
	Sdist PackageType = "sdist"
)

// Release is one published artifact for a (package, version) pair.
type Release struct {
	Version        string
	Filename       string
	URL            string
	SHA256         string
	PackageType    PackageType
	RequiresPython string // raw constraint string, empty if unconstrained
	PythonVersion  string // interpreter tag, e.g. "cp37", "py3", "py2.py3"
}

// Package is everything the index knows about one distribution: its
// metadata and every release it has ever published, oldest first.
type Package struct {
	Name     string
	Author   string
	Releases []Release // ordered oldest to newest, as published
}

// ReleasesFor returns every Release matching the given version string,
// in publish order.
func (p Package) ReleasesFor(ver string) []Release {
	var out []Release
	for _, r := range p.Releases {
		if r.Version == ver {
			out = append(out, r)
		}
	}
	return out
}

// Versions returns every distinct, parseable version the index has
// published for this package, in ascending order.
func (p Package) Versions() []version.Version {
	seen := map[string]bool{}
	var out []version.Version
	for _, r := range p.Releases {
		if seen[r.Version] {
			continue
		}
		seen[r.Version] = true
		v, err := version.Parse(r.Version)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Less(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// VersionInfo is the per-version metadata the resolver needs to expand a
// dependency: its declared dependencies and its own interpreter constraint.
type VersionInfo struct {
	Version        string
	Author         string
	ReleaseURL     string
	MetadataURL    string   // the index endpoint this metadata was fetched from, e.g. "https://pypi.org/pypi/requests/2.31.0/json"
	RequiresPython string   // raw constraint string, empty if unconstrained
	RequiresDist   []string // raw requirement lines, e.g. "urllib3 (>=1.21.1,<1.27)"
}

// Client is the index-client contract (C4).
type Client interface {
	// Package returns every artifact release of every version.
	Package(ctx context.Context, name string) (*Package, error)
	// VersionInfo returns per-version metadata, including declared
	// dependencies, for one specific version.
	VersionInfo(ctx context.Context, name, ver string) (*VersionInfo, error)
	// LatestStable returns the newest version with no pre-release modifier.
	LatestStable(ctx context.Context, name string) (version.Version, error)
}

// NotFoundError reports that the index has no such package.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("package %q not found on the index", e.Name)
}
