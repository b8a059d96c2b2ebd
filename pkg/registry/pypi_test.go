package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const packageJSON = `{
	"info": {"author": "Kenneth Reitz", "version": "2.31.0"},
	"releases": {
		"2.30.0": [{"filename": "requests-2.30.0-py3-none-any.whl", "url": "https://files/2.30.0.whl", "packagetype": "bdist_wheel", "python_version": "py3", "digests": {"sha256": "aaa"}}],
		"2.31.0": [{"filename": "requests-2.31.0-py3-none-any.whl", "url": "https://files/2.31.0.whl", "packagetype": "bdist_wheel", "python_version": "py3", "digests": {"sha256": "bbb"}}]
	}
}`

const versionJSON = `{
	"info": {
		"author": "Kenneth Reitz",
		"version": "2.31.0",
		"release_url": "https://pypi.org/project/requests/2.31.0/",
		"requires_python": ">=3.7",
		"requires_dist": ["urllib3 (>=1.21.1,<1.27)"]
	}
}`

func newTestServer(t *testing.T, body string) (*httptest.Server, *url.URL) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return srv, u
}

func TestPyPI_Package(t *testing.T) {
	srv, u := newTestServer(t, packageJSON)
	defer srv.Close()

	cl := NewPyPI(nil, u)
	pkg, err := cl.Package(context.Background(), "requests")
	require.NoError(t, err)
	assert.Equal(t, "Kenneth Reitz", pkg.Author)
	assert.Len(t, pkg.Versions(), 2)
}

func TestPyPI_VersionInfo(t *testing.T) {
	srv, u := newTestServer(t, versionJSON)
	defer srv.Close()

	cl := NewPyPI(nil, u)
	info, err := cl.VersionInfo(context.Background(), "requests", "2.31.0")
	require.NoError(t, err)
	assert.Equal(t, ">=3.7", info.RequiresPython)
	assert.Equal(t, []string{"urllib3 (>=1.21.1,<1.27)"}, info.RequiresDist)
}

func TestPyPI_LatestStable(t *testing.T) {
	srv, u := newTestServer(t, packageJSON)
	defer srv.Close()

	cl := NewPyPI(nil, u)
	v, err := cl.LatestStable(context.Background(), "requests")
	require.NoError(t, err)
	assert.Equal(t, "2.31.0", v.String())
}

func TestPyPI_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	cl := NewPyPI(nil, u)
	_, err = cl.Package(context.Background(), "doesnotexist")
	require.Error(t, err)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}
