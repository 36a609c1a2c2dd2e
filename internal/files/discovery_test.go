package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banvicdash/internal/config"
	"banvicdash/internal/shared/testutil"
)

func TestDiscoverySources(t *testing.T) {
	cfg := testutil.WriteFixtures(t, map[string]string{"contas.csv": ""})
	discovery := NewDiscovery(cfg)

	sources := discovery.Sources()
	require.Len(t, sources, 7)

	assert.Equal(t, config.TableBranches, sources[0].Table)
	assert.Equal(t, "agencias.csv", sources[0].Name)
	assert.True(t, sources[0].Exists)
	assert.Equal(t, int64(len(testutil.BranchesCSV)), sources[0].Size)

	assert.Equal(t, config.TableAccounts, sources[4].Table)
	assert.False(t, sources[4].Exists)
	assert.Zero(t, sources[4].Size)

	assert.Equal(t, []string{config.TableAccounts}, discovery.Missing())
}

func TestDiscoveryNothingMissing(t *testing.T) {
	discovery := NewDiscovery(testutil.WriteFixtures(t, nil))
	assert.Empty(t, discovery.Missing())
}

func TestFindDataFiles(t *testing.T) {
	cfg := testutil.WriteFixtures(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Dir, "extra.xlsx"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(cfg.Dir, "archive.csv"), 0755))

	found, err := NewDiscovery(cfg).FindDataFiles()
	require.NoError(t, err)
	require.Len(t, found, 8)

	assert.Equal(t, "agencias.csv", found[0].Name)
	assert.Equal(t, config.TableBranches, found[0].Table)

	var extra FileInfo
	for _, f := range found {
		if f.Name == "extra.xlsx" {
			extra = f
		}
	}
	assert.Equal(t, "", extra.Table)
	assert.True(t, extra.Exists)
}

func TestFindDataFilesMissingDir(t *testing.T) {
	cfg := config.Default().Data
	cfg.Dir = filepath.Join(t.TempDir(), "nope")

	_, err := NewDiscovery(cfg).FindDataFiles()
	assert.Error(t, err)
}

func TestGetLatestFile(t *testing.T) {
	now := time.Now()
	files := []FileInfo{
		{Name: "a", Exists: true, ModTime: now.Add(-time.Hour)},
		{Name: "b", Exists: true, ModTime: now},
		{Name: "c", Exists: false, ModTime: now.Add(time.Hour)},
	}

	latest, ok := GetLatestFile(files)
	require.True(t, ok)
	assert.Equal(t, "b", latest.Name)

	_, ok = GetLatestFile(nil)
	assert.False(t, ok)
}
