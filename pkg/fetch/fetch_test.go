package fetch

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// githubTestClient builds an *http.Client whose transport dials straight
// into handler regardless of the request's host, so GitHubFetcher's calls
// to the real go-github client (which always targets api.github.com) can
// be exercised against a local test server.
func githubTestClient(t *testing.T, handler http.Handler) *http.Client {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(_ context.Context, network, _ string) (net.Conn, error) {
				return net.Dial(network, srv.Listener.Addr().String())
			},
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}

func TestByteMapFetcher_FileContent(t *testing.T) {
	f := ByteMapFetcher{Files: map[string][]byte{
		"pyproject.toml": []byte("[tool.pypackage]\n"),
	}}

	data, err := f.FileContent(context.Background(), "pyproject.toml")
	require.NoError(t, err)
	assert.Equal(t, "[tool.pypackage]\n", string(data))
}

func TestByteMapFetcher_NotFound(t *testing.T) {
	f := ByteMapFetcher{Files: map[string][]byte{}}
	_, err := f.FileContent(context.Background(), "missing.toml")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestNewGitHubFetcher_Constructs(t *testing.T) {
	f := NewGitHubFetcher(nil, "psf", "requests", "main")
	gf, ok := f.(*GitHubFetcher)
	require.True(t, ok)
	assert.Equal(t, "psf", gf.Owner)
	assert.Equal(t, "requests", gf.Repo)
	assert.Equal(t, "main", gf.SHA)
}

func TestGitHubFetcher_FileContent(t *testing.T) {
	cl := githubTestClient(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte(`{"content": "W3Rvb2wucHlwYWNrYWdlXQo=", "encoding": "base64"}`))
	}))

	f := NewGitHubFetcher(cl, "psf", "requests", "main")
	data, err := f.FileContent(context.Background(), DefaultManifestPath)
	require.NoError(t, err)
	assert.Equal(t, "[tool.pypackage]\n", string(data))
}

func TestGitHubFetcher_FileContent_NotFound(t *testing.T) {
	cl := githubTestClient(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusNotFound)
		_, _ = rw.Write([]byte(`{"message": "Not Found"}`))
	}))

	f := NewGitHubFetcher(cl, "psf", "requests", "main")
	_, err := f.FileContent(context.Background(), DefaultManifestPath)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestGitHubFetcher_FileContent_DirectoryError(t *testing.T) {
	cl := githubTestClient(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte(`[
			{"name": "pyproject.toml", "path": "pyproject.toml"},
			{"name": "README.md", "path": "README.md"}
		]`))
	}))

	f := NewGitHubFetcher(cl, "psf", "requests", "main")
	_, err := f.FileContent(context.Background(), ".")
	assert.Error(t, err)
}
