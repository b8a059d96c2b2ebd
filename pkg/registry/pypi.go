package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/dephub/pypkg/pkg/version"
)

// pyPiHostname is the default PyPI JSON API host.
const pyPiHostname = "https://pypi.org"

// NewPyPI constructs a Client backed by the PyPI JSON API.
//
// If httpClient or baseURL are nil, defaults are used. Pass baseURL only
// when pointed at a PyPI-compatible mirror or test server.
func NewPyPI(httpClient *http.Client, baseURL *url.URL) *PyPI {
	if baseURL == nil {
		baseURL, _ = url.Parse(pyPiHostname)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &PyPI{httpClient: httpClient, baseURL: *baseURL}
}

// PyPI talks to a PyPI-compatible JSON API (https://pypi.org/apidoc).
type PyPI struct {
	httpClient *http.Client
	baseURL    url.URL
}

// Package fetches every release PyPI has published for name.
func (c *PyPI) Package(ctx context.Context, name string) (*Package, error) {
	if name == "" {
		return nil, fmt.Errorf("package name is required and can't be empty")
	}

	path := fmt.Sprintf("%s/pypi/%s/json", &c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create a request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to send the request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{Name: name}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pypi returned status %d for %q", resp.StatusCode, name)
	}
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read the response body: %w", err)
	}

	var raw rawPackage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unable to parse the response body: %w", err)
	}

	pkg := &Package{Name: name, Author: raw.Info.Author}
	for _, vr := range raw.Releases {
		for _, r := range vr.Releases {
			pkg.Releases = append(pkg.Releases, Release{
				Version:        vr.Version,
				Filename:       r.Filename,
				URL:            r.URL,
				SHA256:         r.Digests.Sha256,
				PackageType:    PackageType(r.Packagetype),
				RequiresPython: r.RequiresPython,
				PythonVersion:  r.PythonVersion,
			})
		}
	}
	return pkg, nil
}

// VersionInfo fetches per-version metadata, including declared
// dependencies ("requires_dist"), for one specific release.
func (c *PyPI) VersionInfo(ctx context.Context, name, ver string) (*VersionInfo, error) {
	if name == "" || ver == "" {
		return nil, fmt.Errorf("package name and version are required")
	}

	path := fmt.Sprintf("%s/pypi/%s/%s/json", &c.baseURL, name, ver)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create a request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to send the request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{Name: name}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pypi returned status %d for %q %q", resp.StatusCode, name, ver)
	}
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read the response body: %w", err)
	}

	var raw struct {
		Info struct {
			Author         string   `json:"author"`
			Version        string   `json:"version"`
			ReleaseURL     string   `json:"release_url"`
			RequiresPython string   `json:"requires_python"`
			RequiresDist   []string `json:"requires_dist"`
		} `json:"info"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unable to parse the response body: %w", err)
	}

	return &VersionInfo{
		Version:        raw.Info.Version,
		Author:         raw.Info.Author,
		ReleaseURL:     raw.Info.ReleaseURL,
		MetadataURL:    path,
		RequiresPython: raw.Info.RequiresPython,
		RequiresDist:   raw.Info.RequiresDist,
	}, nil
}

// LatestStable returns PyPI's "info.version" field, which PyPI itself
// always pins to the latest non-prerelease release.
func (c *PyPI) LatestStable(ctx context.Context, name string) (version.Version, error) {
	path := fmt.Sprintf("%s/pypi/%s/json", &c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return version.Version{}, fmt.Errorf("unable to create a request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return version.Version{}, fmt.Errorf("unable to send the request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return version.Version{}, &NotFoundError{Name: name}
	}
	if resp.StatusCode != http.StatusOK {
		return version.Version{}, fmt.Errorf("pypi returned status %d for %q", resp.StatusCode, name)
	}
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return version.Version{}, fmt.Errorf("unable to read the response body: %w", err)
	}

	var raw struct {
		Info struct {
			Version string `json:"version"`
		} `json:"info"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return version.Version{}, fmt.Errorf("unable to parse the response body: %w", err)
	}
	return version.Parse(raw.Info.Version)
}

// rawPackage mirrors the shape of PyPI's /pypi/<name>/json response.
type rawPackage struct {
	Info struct {
		Author  string `json:"author"`
		Version string `json:"version"`
	} `json:"info"`
	Releases rawReleases `json:"releases"`
}

type rawVersionReleases struct {
	Version  string
	Releases []rawRelease
}

type rawReleases []rawVersionReleases

// UnmarshalJSON decodes PyPI's "releases" object (keyed by version string)
// into an ordered slice, preserving the key order the server sent.
func (rr *rawReleases) UnmarshalJSON(data []byte) error {
	d := json.NewDecoder(bytes.NewReader(data))
	t, err := d.Token()
	if err != nil || t != json.Delim('{') {
		return fmt.Errorf("releases: expected a JSON object")
	}

	var result rawReleases
	for d.More() {
		key, err := d.Token()
		if err != nil {
			return fmt.Errorf("releases: %w", err)
		}
		var rels []rawRelease
		if err := d.Decode(&rels); err != nil {
			return fmt.Errorf("releases: %w", err)
		}
		result = append(result, rawVersionReleases{Version: key.(string), Releases: rels})
	}
	*rr = result
	return nil
}

type rawRelease struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Digests  struct {
		Sha256 string `json:"sha256"`
	} `json:"digests"`
	Packagetype    string `json:"packagetype"`
	PythonVersion  string `json:"python_version"`
	RequiresPython string `json:"requires_python"`
}
