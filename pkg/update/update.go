/*
Package update answers "what newer versions exist" without installing
anything: given a project's lock file and (optionally) its manifest
constraints, it queries the index for newer releases. This supports
checking a project — including one that lives in a remote repository,
via pkg/fetch — for available updates without ever syncing it locally.

Usage:
	checker := update.NewPIPChecker(registryClient)
	updates, err := checker.LastUpdates(ctx, lockedPackages, true)
*/
package update

import (
	"context"
	"fmt"
	"strings"

	"github.com/dephub/pypkg/pkg/fetch"
	"github.com/dephub/pypkg/pkg/lock"
	"github.com/dephub/pypkg/pkg/manifest"
	"github.com/dephub/pypkg/pkg/registry"
	"github.com/dephub/pypkg/pkg/requirement"
	"github.com/dephub/pypkg/pkg/version"
)

// Update describes one available new release for a locked package.
type Update struct {
	Name              string
	Version           string
	Author            string
	URL               string
	CurrentVersion    string
	CurrentConstraint string
}

// Checker answers update questions about a project's locked dependencies.
type Checker interface {
	// CompatibleUpdates reports, for each locked package whose manifest
	// requirement carries at least one constraint, the highest stable
	// version satisfying those constraints that is newer than what's
	// locked. Packages with no requirement or an unconstrained one are
	// skipped, and pre-releases are never reported.
	CompatibleUpdates(ctx context.Context, locked []lock.LockPackage, reqs []requirement.Req) ([]Update, error)
	// LastUpdates reports the newest stable release of every locked
	// package, regardless of manifest constraints. When incompatibleOnly
	// is true, packages already at their newest stable release are omitted.
	LastUpdates(ctx context.Context, locked []lock.LockPackage, incompatibleOnly bool) ([]Update, error)
}

// PIPChecker is the Checker implementation backed by a registry.Client.
type PIPChecker struct {
	Index registry.Client
}

// NewPIPChecker constructs a PIPChecker.
func NewPIPChecker(index registry.Client) *PIPChecker {
	return &PIPChecker{Index: index}
}

// CompatibleUpdates implements Checker.
func (uc *PIPChecker) CompatibleUpdates(ctx context.Context, locked []lock.LockPackage, reqs []requirement.Req) ([]Update, error) {
	if len(locked) == 0 || len(reqs) == 0 {
		return nil, fmt.Errorf("no locked packages or requirements provided")
	}

	reqsByName := make(map[string]requirement.Req, len(reqs))
	for _, r := range reqs {
		reqsByName[normalize(r.Name)] = r
	}

	var out []Update
	for _, lp := range locked {
		req, ok := reqsByName[normalize(lp.Name)]
		if !ok || len(req.Constraints) == 0 {
			continue
		}

		lockedVer, err := version.Parse(lp.Version)
		if err != nil {
			continue
		}

		pkg, err := uc.Index.Package(ctx, lp.Name)
		if err != nil {
			continue
		}

		var best *version.Version
		for _, v := range pkg.Versions() {
			if v.IsPrerelease() || !req.Constraints.IsCompatible(v) {
				continue
			}
			if best == nil || v.Compare(*best) > 0 {
				vv := v
				best = &vv
			}
		}
		if best == nil || best.Compare(lockedVer) <= 0 {
			continue
		}

		info, err := uc.Index.VersionInfo(ctx, lp.Name, best.String())
		if err != nil {
			continue
		}
		out = append(out, Update{
			Name:              lp.Name,
			Version:           best.String(),
			Author:            info.Author,
			URL:               info.ReleaseURL,
			CurrentVersion:    lp.Version,
			CurrentConstraint: req.Constraints.String(),
		})
	}
	return out, nil
}

// LastUpdates implements Checker.
func (uc *PIPChecker) LastUpdates(ctx context.Context, locked []lock.LockPackage, incompatibleOnly bool) ([]Update, error) {
	if len(locked) == 0 {
		return nil, fmt.Errorf("no locked packages provided")
	}

	out := make([]Update, 0, len(locked))
	for _, lp := range locked {
		latest, err := uc.Index.LatestStable(ctx, lp.Name)
		if err != nil {
			continue
		}

		lockedVer, err := version.Parse(lp.Version)
		if err == nil && incompatibleOnly && latest.Compare(lockedVer) <= 0 {
			continue
		}

		info, err := uc.Index.VersionInfo(ctx, lp.Name, latest.String())
		if err != nil {
			continue
		}
		out = append(out, Update{
			Name:           lp.Name,
			Version:        latest.String(),
			Author:         info.Author,
			URL:            info.ReleaseURL,
			CurrentVersion: lp.Version,
		})
	}
	return out, nil
}

// LoadRemoteManifest fetches and parses a project's manifest at its
// conventional path (fetch.DefaultManifestPath) from a remote source
// (e.g. a GitHub repository via fetch.NewGitHubFetcher), so updates can
// be checked without cloning the project locally.
func LoadRemoteManifest(ctx context.Context, f fetch.FileFetcher) (*manifest.Manifest, error) {
	data, err := fetch.ManifestContent(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", fetch.DefaultManifestPath, err)
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", fetch.DefaultManifestPath, err)
	}
	return m, nil
}

// LoadRemoteLock fetches and parses a project's lock file at its
// conventional path (fetch.DefaultLockPath) from a remote source.
func LoadRemoteLock(ctx context.Context, f fetch.FileFetcher) (*lock.Lock, error) {
	data, err := fetch.LockContent(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", fetch.DefaultLockPath, err)
	}
	l, err := lock.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", fetch.DefaultLockPath, err)
	}
	return l, nil
}

func normalize(name string) string {
	return strings.ToLower(name)
}
