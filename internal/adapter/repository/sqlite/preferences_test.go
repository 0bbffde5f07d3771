package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
)

// setupTestRepo opens an in-memory database with the schema initialized.
func setupTestRepo(t *testing.T) *PreferencesRepository {
	t.Helper()

	repo, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestPreferencesRepository_Empty(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.LoadMuted()
	assert.ErrorIs(t, err, domain.ErrPreferenceNotSet)
	_, err = repo.LoadShuffle()
	assert.ErrorIs(t, err, domain.ErrPreferenceNotSet)
	_, err = repo.LoadRepeatMode()
	assert.ErrorIs(t, err, domain.ErrPreferenceNotSet)
}

func TestPreferencesRepository_PartialRow(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.SaveShuffle(true))

	shuffle, err := repo.LoadShuffle()
	require.NoError(t, err)
	assert.True(t, shuffle)

	_, err = repo.LoadMuted()
	assert.ErrorIs(t, err, domain.ErrPreferenceNotSet, "unsaved columns stay unset")
}

func TestPreferencesRepository_SaveAndLoad(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.SaveMuted(true))
	require.NoError(t, repo.SaveRepeatMode(domain.RepeatAll))
	require.NoError(t, repo.SaveRepeatMode(domain.RepeatOne))

	muted, err := repo.LoadMuted()
	require.NoError(t, err)
	assert.True(t, muted)

	mode, err := repo.LoadRepeatMode()
	require.NoError(t, err)
	assert.Equal(t, domain.RepeatOne, mode)
}

func TestPreferencesRepository_Clear(t *testing.T) {
	repo := setupTestRepo(t)
	require.NoError(t, repo.SaveMuted(true))

	require.NoError(t, repo.Clear())

	_, err := repo.LoadMuted()
	assert.ErrorIs(t, err, domain.ErrPreferenceNotSet)
}

func TestPreferencesRepository_CorruptRepeatMode(t *testing.T) {
	repo := setupTestRepo(t)
	_, err := repo.db.Exec(`INSERT INTO preferences (id, repeat_mode) VALUES (1, 'sideways')`)
	require.NoError(t, err)

	_, err = repo.LoadRepeatMode()
	var repoErr *domain.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.Equal(t, "LoadRepeatMode", repoErr.Op)
}

func TestPreferencesRepository_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.db")

	repo, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, repo.SaveShuffle(true))
	require.NoError(t, repo.SaveRepeatMode(domain.RepeatAll))
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	shuffle, err := reopened.LoadShuffle()
	require.NoError(t, err)
	assert.True(t, shuffle)

	mode, err := reopened.LoadRepeatMode()
	require.NoError(t, err)
	assert.Equal(t, domain.RepeatAll, mode)
}
