package prompt_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcax/internal/domain"
	"pcax/internal/prompt"
)

func writePromptDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	versions := `{
		"active_version": "v2",
		"versions": [
			{"id": "v1", "name": "baseline"},
			{"id": "v2", "name": "page-cited"}
		]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "versions.json"), []byte(versions), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "v1_extract.txt"), []byte("Extract every PCA."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "v2_extract.txt"), []byte("Extract every PCA and cite pages."), 0o644))
	return dir
}

func TestStore_ActiveLoadsContent(t *testing.T) {
	store := prompt.NewStore(writePromptDir(t))

	v, err := store.Active()
	require.NoError(t, err)
	assert.Equal(t, "v2", v.ID)
	assert.True(t, v.Active)
	assert.Equal(t, "Extract every PCA and cite pages.", v.Content)
}

func TestStore_GetSpecificVersion(t *testing.T) {
	store := prompt.NewStore(writePromptDir(t))

	v, err := store.Get("v1")
	require.NoError(t, err)
	assert.Equal(t, "baseline", v.Name)
	assert.False(t, v.Active)
	assert.Equal(t, "Extract every PCA.", v.Content)

	_, err = store.Get("v9")
	assert.ErrorIs(t, err, domain.ErrPromptNotFound)
}

func TestStore_ListOmitsContent(t *testing.T) {
	store := prompt.NewStore(writePromptDir(t))

	versions, err := store.List()
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Empty(t, versions[0].Content)
	assert.False(t, versions[0].Active)
	assert.True(t, versions[1].Active)
}

func TestStore_SetActivePersists(t *testing.T) {
	store := prompt.NewStore(writePromptDir(t))

	require.NoError(t, store.SetActive("v1"))
	v, err := store.Active()
	require.NoError(t, err)
	assert.Equal(t, "v1", v.ID)

	assert.ErrorIs(t, store.SetActive("v9"), domain.ErrPromptNotFound)
}
