package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dephub/pypkg/pkg/installer"
	"github.com/dephub/pypkg/pkg/registry"
	"github.com/dephub/pypkg/pkg/resolve"
	"github.com/dephub/pypkg/pkg/version"
)

type indexMock struct {
	mock.Mock
}

func (m *indexMock) Package(ctx context.Context, name string) (*registry.Package, error) {
	args := m.Called(ctx, name)
	pkg, _ := args.Get(0).(*registry.Package)
	return pkg, args.Error(1)
}

func (m *indexMock) VersionInfo(ctx context.Context, name, ver string) (*registry.VersionInfo, error) {
	args := m.Called(ctx, name, ver)
	info, _ := args.Get(0).(*registry.VersionInfo)
	return info, args.Error(1)
}

func (m *indexMock) LatestStable(ctx context.Context, name string) (version.Version, error) {
	args := m.Called(ctx, name)
	v, _ := args.Get(0).(version.Version)
	return v, args.Error(1)
}

type installerMock struct {
	mock.Mock
}

func (m *installerMock) Install(ctx context.Context, spec installer.ArtifactSpec) error {
	args := m.Called(ctx, spec)
	return args.Error(0)
}

func (m *installerMock) Uninstall(ctx context.Context, name, ver, libPath string) error {
	args := m.Called(ctx, name, ver, libPath)
	return args.Error(0)
}

func mustPinned(t *testing.T, name, ver string) resolve.Pinned {
	t.Helper()
	v, err := version.Parse(ver)
	require.NoError(t, err)
	return resolve.Pinned{Name: name, Version: v}
}

func TestSync_InstallsMissingPackage(t *testing.T) {
	idx := new(indexMock)
	inst := new(installerMock)

	idx.On("Package", mock.Anything, "requests").Return(&registry.Package{Releases: []registry.Release{
		{Version: "2.31.0", PackageType: registry.Wheel, Filename: "requests-2.31.0-py3-none-any.whl", PythonVersion: "py3", URL: "https://x/requests.whl"},
	}}, nil)
	inst.On("Install", mock.Anything, mock.MatchedBy(func(spec installer.ArtifactSpec) bool {
		return spec.Name == "requests" && spec.Version == "2.31.0"
	})).Return(nil)

	libDir := t.TempDir()
	eng := New(idx, inst)
	pyv, err := version.Parse("3.9")
	require.NoError(t, err)

	report, err := eng.Sync(context.Background(), Plan{
		Pinned:    []resolve.Pinned{mustPinned(t, "requests", "2.31.0")},
		PyVersion: pyv,
		LibPath:   libDir,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"requests 2.31.0"}, report.Installed)
	assert.Empty(t, report.Removed)
	inst.AssertExpectations(t)
}

func TestSync_SkipsAlreadyInstalled(t *testing.T) {
	idx := new(indexMock)
	inst := new(installerMock)
	libDir := t.TempDir()

	pkgDir := filepath.Join(libDir, "requests")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, ".pypkg-installed"), []byte("2.31.0 abc\n"), 0o644))

	eng := New(idx, inst)
	pyv, err := version.Parse("3.9")
	require.NoError(t, err)

	report, err := eng.Sync(context.Background(), Plan{
		Pinned:    []resolve.Pinned{mustPinned(t, "requests", "2.31.0")},
		PyVersion: pyv,
		LibPath:   libDir,
	})
	require.NoError(t, err)
	assert.Empty(t, report.Installed)
	assert.Empty(t, report.Removed)
	idx.AssertNotCalled(t, "Package", mock.Anything, mock.Anything)
	inst.AssertNotCalled(t, "Install", mock.Anything, mock.Anything)
}

func TestSync_RemovesNoLongerWanted(t *testing.T) {
	idx := new(indexMock)
	inst := new(installerMock)
	libDir := t.TempDir()

	pkgDir := filepath.Join(libDir, "stale")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, ".pypkg-installed"), []byte("1.0.0 abc\n"), 0o644))

	inst.On("Uninstall", mock.Anything, "stale", "1.0.0", libDir).Return(nil)

	eng := New(idx, inst)
	pyv, err := version.Parse("3.9")
	require.NoError(t, err)

	report, err := eng.Sync(context.Background(), Plan{PyVersion: pyv, LibPath: libDir})
	require.NoError(t, err)
	assert.Equal(t, []string{"stale 1.0.0"}, report.Removed)
	inst.AssertExpectations(t)
}

func TestBuildLock(t *testing.T) {
	pinned := mustPinned(t, "requests", "2.31.0")
	pinned.MetadataURL = "https://pypi.org/pypi/requests/2.31.0/json"

	l := BuildLock([]resolve.Pinned{pinned}, "pypi")
	require.Len(t, l.Packages, 1)
	assert.Equal(t, "requests", l.Packages[0].Name)
	assert.Equal(t, "pypi+https://pypi.org/pypi/requests/2.31.0/json", l.Packages[0].Source)
}

func TestBuildLock_NoMetadataURLLeavesSourceEmpty(t *testing.T) {
	l := BuildLock([]resolve.Pinned{mustPinned(t, "requests", "2.31.0")}, "pypi")
	require.Len(t, l.Packages, 1)
	assert.Empty(t, l.Packages[0].Source)
}
