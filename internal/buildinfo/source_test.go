package buildinfo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifest = `"AppState"
{
	"appid"		"2430930"
	"buildid"		"16354021"
	"LastOwner"		"0"
}`

const appInfo = `"2430930"
{
	"depots"
	{
		"branches"
		{
			"public"
			{
				"buildid"		"16400001"
				"timeupdated"		"1730000000"
			}
			"beta"
			{
				"buildid"		"1"
			}
		}
	}
}`

func TestCurrentBuildSearchesCandidates(t *testing.T) {
	root := t.TempDir()
	install := filepath.Join(root, "common", "ArkServer")
	require.NoError(t, os.MkdirAll(install, 0755))

	s := NewSource(0)
	_, err := s.CurrentBuild(context.Background(), install)
	assert.ErrorIs(t, err, ErrManifestNotFound)

	// library layout: two levels above the install dir
	require.NoError(t, os.WriteFile(filepath.Join(root, "appmanifest_2430930.acf"), []byte(manifest), 0644))
	id, err := s.CurrentBuild(context.Background(), install)
	require.NoError(t, err)
	assert.Equal(t, "16354021", id)

	// private steamcmd copy wins
	dir := filepath.Join(install, "steamcmd", "steamapps")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "appmanifest_2430930.acf"), []byte(`"buildid" "42"`), 0644))
	id, err = s.CurrentBuild(context.Background(), install)
	require.NoError(t, err)
	assert.Equal(t, "42", id)
}

func TestParseLatestBuildUsesPublicBranch(t *testing.T) {
	id, err := ParseLatestBuild([]byte(appInfo))
	require.NoError(t, err)
	assert.Equal(t, "16400001", id)

	_, err = ParseLatestBuild([]byte("Steam>"))
	assert.Error(t, err)
}

func TestQueryRunsBoth(t *testing.T) {
	install := t.TempDir()
	steamDir := filepath.Join(install, "steamcmd")
	require.NoError(t, os.MkdirAll(filepath.Join(steamDir, "steamapps"), 0755))
	require.NoError(t, os.WriteFile(SteamCMDPath(install), []byte{}, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(steamDir, "steamapps", "appmanifest_2430930.acf"), []byte(manifest), 0644))

	s := NewSource(0)
	var gotArgs []string
	s.run = func(_ context.Context, dir, _ string, args ...string) ([]byte, error) {
		assert.Equal(t, steamDir, dir)
		gotArgs = args
		return []byte(appInfo), nil
	}

	current, latest, err := s.Query(context.Background(), install)
	require.NoError(t, err)
	assert.Equal(t, "16354021", current)
	assert.Equal(t, "16400001", latest)
	assert.Equal(t, []string{"+login", "anonymous", "+app_info_print", "2430930", "+quit"}, gotArgs)
}

func TestLatestBuildWithoutSteamCMD(t *testing.T) {
	_, err := NewSource(0).LatestBuild(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrSteamCMDNotFound)
}
