package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackage_ReleasesFor(t *testing.T) {
	pkg := Package{Releases: []Release{
		{Version: "1.0.0", Filename: "a.whl"},
		{Version: "1.0.0", Filename: "a.tar.gz"},
		{Version: "2.0.0", Filename: "b.whl"},
	}}
	assert.Len(t, pkg.ReleasesFor("1.0.0"), 2)
	assert.Len(t, pkg.ReleasesFor("9.9.9"), 0)
}

func TestPackage_Versions_DedupesAndSorts(t *testing.T) {
	pkg := Package{Releases: []Release{
		{Version: "2.0.0"},
		{Version: "1.0.0"},
		{Version: "1.0.0"},
		{Version: "not-a-version"},
	}}
	versions := pkg.Versions()
	require := assert.New(t)
	require.Len(versions, 2)
	require.Equal("1.0.0", versions[0].String())
	require.Equal("2.0.0", versions[1].String())
}
