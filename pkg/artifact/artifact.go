/*
Package artifact implements the artifact selector (spec component C5):
given the releases the index reports for a (package, version), pick the
best one for the host OS and interpreter, preferring a wheel over a
source distribution.

Usage:
	rel, kind, err := artifact.Select(name, releases, artifact.HostOS(), pyVersion)
*/
package artifact

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"github.com/dephub/pypkg/pkg/constraint"
	"github.com/dephub/pypkg/pkg/registry"
	"github.com/dephub/pypkg/pkg/version"
)

// Os identifies a wheel's target platform.
type Os string

// Supported platforms, matching the wheel filename suffix vocabulary.
const (
	Linux32   Os = "linux32"
	Linux     Os = "linux"
	Windows32 Os = "windows32"
	Windows   Os = "windows"
	Mac       Os = "mac"
	Any       Os = "any"
)

// wheelOsTokens maps a wheel filename's final dash-segment to an Os, per
// the platform-detection contract (spec §6).
var wheelOsTokens = map[string]Os{
	"manylinux1_i686":   Linux32,
	"manylinux1_x86_64": Linux,
	"win32":             Windows32,
	"win_amd64":         Windows,
	"darwin":            Mac,
	"any":               Any,
}

// wheelSuffixRgx pulls the final pre-".whl" dash-segment out of a wheel
// filename, e.g. "PyQt5-5.13.0-5.13.0-cp35.cp36.cp37.cp38-none-win32.whl"
// -> "win32".
var wheelSuffixRgx = regexp.MustCompile(`^(?:.*?-)+(.*)\.whl$`)

// HostOS returns the Os constant for the platform this binary was built
// for. It is a build-time constant, per the data model.
func HostOS() Os {
	switch runtime.GOOS {
	case "windows":
		if runtime.GOARCH == "386" {
			return Windows32
		}
		return Windows
	case "darwin":
		return Mac
	case "linux":
		if runtime.GOARCH == "386" {
			return Linux32
		}
		return Linux
	default:
		return Any
	}
}

// osFromWheelFilename parses a wheel filename's platform tag.
func osFromWheelFilename(filename string) (Os, error) {
	m := wheelSuffixRgx.FindStringSubmatch(filename)
	if m == nil {
		return "", fmt.Errorf("unable to parse os from wheel filename %q", filename)
	}
	tag := strings.ToLower(m[1])
	if os, ok := wheelOsTokens[tag]; ok {
		return os, nil
	}
	if strings.Contains(tag, "mac") {
		return Mac, nil
	}
	return "", fmt.Errorf("unsupported wheel platform tag %q", tag)
}

// NoCompatibleReleaseError reports that the resolver chose a version but
// no release targets the host (OS, interpreter).
type NoCompatibleReleaseError struct {
	Name    string
	Version string
}

func (e *NoCompatibleReleaseError) Error() string {
	return fmt.Sprintf("no compatible release for %s %s", e.Name, e.Version)
}

// Select picks the best release for the host OS and interpreter version,
// following spec §4.4: wheels are partitioned from sdists; the first
// compatible wheel wins; failing that, the first sdist is returned for
// the caller to build from source; failing that, selection fails.
func Select(name string, releases []registry.Release, host Os, pyVersion version.Version) (registry.Release, registry.PackageType, error) {
	var sdists []registry.Release

	for _, r := range releases {
		switch r.PackageType {
		case registry.Wheel:
			ok, err := wheelCompatible(r, host, pyVersion)
			if err != nil {
				continue
			}
			if ok {
				return r, registry.Wheel, nil
			}
		case registry.Sdist:
			sdists = append(sdists, r)
		}
	}

	if len(sdists) > 0 {
		return sdists[0], registry.Sdist, nil
	}

	ver := ""
	if len(releases) > 0 {
		ver = releases[0].Version
	}
	return registry.Release{}, "", &NoCompatibleReleaseError{Name: name, Version: ver}
}

func wheelCompatible(r registry.Release, host Os, pyVersion version.Version) (bool, error) {
	if r.RequiresPython != "" {
		cs, err := constraint.ParseSet(r.RequiresPython)
		if err != nil {
			return false, err
		}
		if !cs.IsCompatible(pyVersion) {
			return false, nil
		}
	}

	wheelOs, err := osFromWheelFilename(r.Filename)
	if err != nil {
		return false, err
	}
	if wheelOs != host && wheelOs != Any {
		return false, nil
	}

	return tagMatchesInterpreter(r.PythonVersion, pyVersion), nil
}

// tagMatchesInterpreter implements the interpreter-tag compatibility
// rule: "py3"/"py2.py3" are universal, but only for a Python 3.x host;
// anything else (e.g. "cp37") must match the host's major.minor exactly.
func tagMatchesInterpreter(tag string, pyVersion version.Version) bool {
	switch tag {
	case "py3", "py2.py3":
		return pyVersion.Major() == 3
	}
	tagVer, err := version.Parse(tag)
	if err != nil {
		return false
	}
	return tagVer.Major() == pyVersion.Major() && tagVer.Minor() == pyVersion.Minor()
}
