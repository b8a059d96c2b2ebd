/*
Package fetch provides file fetchers used to read a manifest or lock file
that lives outside the local working tree — most usefully, one committed
to a remote git-hosted repository, so an update check can be run against
a project without cloning it first.

Usage:
	f := fetch.NewGitHubFetcher(nil, "psf", "requests", "main")
	data, err := fetch.ManifestContent(ctx, f)
*/
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v33/github"
)

// ErrFileNotFound is returned when the requested path does not exist in
// the fetcher's backing store.
var ErrFileNotFound = errors.New("manifest file not found")

// Conventional manifest/lock file names, matching pkg/manifest and
// pkg/lock's own on-disk expectations, so a caller auditing a remote
// project doesn't need to know (or guess) where it keeps its files.
const (
	DefaultManifestPath = "pyproject.toml"
	DefaultLockPath     = "pypackage.lock"
)

// FileFetcher reads one named file from wherever a project's manifest and
// lock files live.
type FileFetcher interface {
	FileContent(ctx context.Context, path string) ([]byte, error)
}

// ManifestContent fetches a project's manifest at its conventional path.
func ManifestContent(ctx context.Context, f FileFetcher) ([]byte, error) {
	return f.FileContent(ctx, DefaultManifestPath)
}

// LockContent fetches a project's lock file at its conventional path.
// Returns ErrFileNotFound for a project that has never been synced.
func LockContent(ctx context.Context, f FileFetcher) ([]byte, error) {
	return f.FileContent(ctx, DefaultLockPath)
}

// ByteMapFetcher serves file contents out of an in-memory map. Useful for
// tests and for any caller that has already loaded a manifest some other way.
type ByteMapFetcher struct {
	Files map[string][]byte
}

// FileContent returns the bytes stored under path, or ErrFileNotFound.
func (sf ByteMapFetcher) FileContent(ctx context.Context, path string) ([]byte, error) {
	v, ok := sf.Files[path]
	if !ok {
		return nil, ErrFileNotFound
	}
	return v, nil
}

// GitHubFetcher reads files out of a single ref of a GitHub repository.
// Owner and Repo follow the '{owner}/{repo}' notation; SHA may be a
// branch, tag, or commit SHA, and is left empty to mean the default branch.
type GitHubFetcher struct {
	Owner        string
	Repo         string
	SHA          string
	githubClient *github.Client
}

// NewGitHubFetcher constructs a GitHubFetcher. httpClient may be an
// OAuth2 or BasicAuth transport for private repositories; nil uses the
// unauthenticated default client.
func NewGitHubFetcher(httpClient *http.Client, owner, repo, sha string) FileFetcher {
	return &GitHubFetcher{
		Owner:        owner,
		Repo:         repo,
		SHA:          sha,
		githubClient: github.NewClient(httpClient),
	}
}

// FileContent fetches one file's content, path relative to the repo root.
func (p GitHubFetcher) FileContent(ctx context.Context, path string) ([]byte, error) {
	opts := github.RepositoryContentGetOptions{Ref: p.SHA}

	rc, dc, resp, err := p.githubClient.Repositories.GetContents(ctx, p.Owner, p.Repo, path, &opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("unable to load %q from github.com/%s/%s: %w", path, p.Owner, p.Repo, err)
	}
	if len(dc) != 0 {
		return nil, fmt.Errorf("%q is a directory, not a file", path)
	}

	c, err := rc.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", path, err)
	}
	return []byte(c), nil
}
