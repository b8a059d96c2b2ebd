/*
Package sync implements the sync engine (spec component C8): given a
freshly resolved set of pinned packages and whatever is already present
in the project's library directory, compute the minimal set of installs
and removals needed to make the directory match the resolution and apply
them. Sync neither reads nor writes the lock file: BuildLock renders the
refreshed Lock value from the pinned set, and encoding and writing it is
left to the caller.

Usage:
	eng := sync.New(registryClient, installerImpl)
	report, err := eng.Sync(ctx, sync.Plan{...})
*/
package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/datawire/dlib/dlog"

	"github.com/dephub/pypkg/pkg/artifact"
	"github.com/dephub/pypkg/pkg/installer"
	"github.com/dephub/pypkg/pkg/lock"
	"github.com/dephub/pypkg/pkg/registry"
	"github.com/dephub/pypkg/pkg/resolve"
	"github.com/dephub/pypkg/pkg/version"
)

// Plan is everything Sync needs for one run.
type Plan struct {
	Pinned     []resolve.Pinned
	PyVersion  version.Version
	LibPath    string
	BinPath    string
	SourceTag  string // e.g. "pypi"; Sync does not read it (BuildLock takes the tag as an argument)
}

// Report summarizes what a Sync call did.
type Report struct {
	Installed []string // "name version"
	Removed   []string // "name version"
}

// Engine runs the sync algorithm against a registry, an artifact
// selector, and an installer.
type Engine struct {
	Index     registry.Client
	Installer installer.Installer
}

// New constructs an Engine.
func New(index registry.Client, inst installer.Installer) *Engine {
	return &Engine{Index: index, Installer: inst}
}

// installedEntry is what Sync discovers is already on disk.
type installedEntry struct {
	Name    string
	Version string
}

// Sync reconciles LibPath against the resolved set: packages present in
// LibPath but absent from the resolution are uninstalled; packages in the
// resolution but missing, or installed at a different version, are
// installed, the new version replacing the old one's directory in place.
// All installs run before any removal, so nothing is removed while an
// install can still fail. With the Local installer, an upgraded package
// keeps its old version on disk until the new artifact has been downloaded
// and its digest checked; if unpacking then fails, the package's
// directory holds neither version.
func (e *Engine) Sync(ctx context.Context, plan Plan) (*Report, error) {
	if err := os.MkdirAll(plan.LibPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating library directory: %w", err)
	}

	installedBefore, err := discoverInstalled(plan.LibPath)
	if err != nil {
		return nil, fmt.Errorf("scanning library directory: %w", err)
	}
	installedByName := map[string]installedEntry{}
	for _, ie := range installedBefore {
		installedByName[normalize(ie.Name)] = ie
	}

	wanted := map[string]resolve.Pinned{}
	for _, p := range plan.Pinned {
		wanted[normalize(p.Name)] = p
	}

	report := &Report{}

	toInstall := make([]resolve.Pinned, 0, len(plan.Pinned))
	for key, p := range wanted {
		cur, ok := installedByName[key]
		if ok && cur.Version == p.Version.String() {
			continue
		}
		toInstall = append(toInstall, p)
	}
	sort.Slice(toInstall, func(i, j int) bool { return toInstall[i].Name < toInstall[j].Name })

	for _, p := range toInstall {
		if err := e.installOne(ctx, p, plan); err != nil {
			return report, fmt.Errorf("installing %s: %w", p.Name, err)
		}
		report.Installed = append(report.Installed, p.Name+" "+p.Version.String())
	}

	toRemove := make([]installedEntry, 0)
	for key, ie := range installedByName {
		if _, ok := wanted[key]; !ok {
			toRemove = append(toRemove, ie)
		}
	}
	sort.Slice(toRemove, func(i, j int) bool { return toRemove[i].Name < toRemove[j].Name })

	for _, ie := range toRemove {
		if err := e.Installer.Uninstall(ctx, ie.Name, ie.Version, plan.LibPath); err != nil {
			return report, fmt.Errorf("uninstalling %s: %w", ie.Name, err)
		}
		report.Removed = append(report.Removed, ie.Name+" "+ie.Version)
	}

	dlog.Infof(ctx, "sync complete: %d installed, %d removed", len(report.Installed), len(report.Removed))
	return report, nil
}

// installOne selects an artifact for p and hands it to the installer.
func (e *Engine) installOne(ctx context.Context, p resolve.Pinned, plan Plan) error {
	pkg, err := e.Index.Package(ctx, p.Name)
	if err != nil {
		return fmt.Errorf("fetching package metadata: %w", err)
	}
	releases := pkg.ReleasesFor(p.Version.String())
	if len(releases) == 0 {
		return fmt.Errorf("index has no release %s for %s", p.Version.String(), p.Name)
	}

	rel, kind, err := artifact.Select(p.Name, releases, artifact.HostOS(), plan.PyVersion)
	if err != nil {
		return err
	}

	return e.Installer.Install(ctx, installer.ArtifactSpec{
		Name:     p.Name,
		Version:  p.Version.String(),
		URL:      rel.URL,
		Filename: rel.Filename,
		SHA256:   rel.SHA256,
		Kind:     kind,
		LibPath:  plan.LibPath,
		BinPath:  plan.BinPath,
	})
}

// BuildLock renders the Lock model (C7) for a completed sync: one
// [[package]] entry per pinned dependency, its source recording
// "<sourceTag>+<metadata-url>" per spec §4.5 (e.g.
// "pypi+https://pypi.org/pypi/requests/2.31.0/json"), so the lock alone is
// enough to re-fetch exactly the metadata the resolution was built from.
func BuildLock(pinned []resolve.Pinned, sourceTag string) *lock.Lock {
	l := &lock.Lock{}
	for _, p := range pinned {
		src := ""
		if sourceTag != "" && p.MetadataURL != "" {
			src = fmt.Sprintf("%s+%s", sourceTag, p.MetadataURL)
		}
		l.Packages = append(l.Packages, lock.LockPackage{
			Name:    p.Name,
			Version: p.Version.String(),
			Source:  src,
		})
	}
	return l
}

// discoverInstalled scans libPath's immediate subdirectories for the
// installer's marker file and reports what's actually on disk, so Sync
// can reconcile against reality rather than trust a possibly-stale lock.
func discoverInstalled(libPath string) ([]installedEntry, error) {
	entries, err := os.ReadDir(libPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []installedEntry
	for _, de := range entries {
		if !de.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(libPath, de.Name(), ".pypkg-installed"))
		if err != nil {
			continue // not one of ours, or not fully installed
		}
		fields := strings.Fields(string(data))
		if len(fields) == 0 {
			continue
		}
		out = append(out, installedEntry{Name: de.Name(), Version: fields[0]})
	}
	return out, nil
}

func normalize(name string) string {
	return strings.ToLower(name)
}
