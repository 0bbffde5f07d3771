// Package sqlite provides repository implementations backed by an SQLite file.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
	"github.com/tejashwikalptaru/tunequeue/internal/ports"
)

const (
	appName    = "tunequeue"
	dbFileName = "tunequeue.db"
	repoType   = "sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DefaultPath returns the database location under the XDG data directory.
func DefaultPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}

// PreferencesRepository implements ports.PreferencesRepository on a single-row table.
// Columns stay NULL until their preference is first saved.
//
// Thread-safe: database/sql serializes access; the pool is limited to one
// connection so in-memory databases are shared by every call.
type PreferencesRepository struct {
	db        *sql.DB
	closeOnce sync.Once
}

// Open opens (creating if needed) the database at path and initializes the schema.
// An empty path selects DefaultPath.
func Open(path string) (*PreferencesRepository, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, domain.NewRepositoryError("open", repoType, "resolve data path", err)
		}
	}

	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, domain.NewRepositoryError("open", repoType, "create data directory", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, domain.NewRepositoryError("open", repoType, "open database", err)
	}
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, domain.NewRepositoryError("open", repoType, "initialize schema", err)
	}

	return &PreferencesRepository{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS preferences (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			muted INTEGER,
			shuffle INTEGER,
			repeat_mode TEXT
		);
	`)
	return err
}

// save upserts one column of the preferences row.
func (r *PreferencesRepository) save(op, column string, value any) error {
	query := fmt.Sprintf(`
		INSERT INTO preferences (id, %[1]s)
		VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET
			%[1]s = excluded.%[1]s
	`, column)
	if _, err := r.db.Exec(query, value); err != nil {
		return domain.NewRepositoryError(op, repoType, "write "+column, err)
	}
	return nil
}

func (r *PreferencesRepository) loadBool(op, column string) (bool, error) {
	var v sql.NullBool
	err := r.db.QueryRow(`SELECT ` + column + ` FROM preferences WHERE id = 1`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, domain.ErrPreferenceNotSet
	}
	if err != nil {
		return false, domain.NewRepositoryError(op, repoType, "read "+column, err)
	}
	if !v.Valid {
		return false, domain.ErrPreferenceNotSet
	}
	return v.Bool, nil
}

// SaveMuted persists the mute state.
func (r *PreferencesRepository) SaveMuted(muted bool) error {
	return r.save("SaveMuted", "muted", muted)
}

// LoadMuted retrieves the saved mute state.
func (r *PreferencesRepository) LoadMuted() (bool, error) {
	return r.loadBool("LoadMuted", "muted")
}

// SaveShuffle persists the shuffle flag.
func (r *PreferencesRepository) SaveShuffle(enabled bool) error {
	return r.save("SaveShuffle", "shuffle", enabled)
}

// LoadShuffle retrieves the saved shuffle flag.
func (r *PreferencesRepository) LoadShuffle() (bool, error) {
	return r.loadBool("LoadShuffle", "shuffle")
}

// SaveRepeatMode persists the repeat mode by name.
func (r *PreferencesRepository) SaveRepeatMode(mode domain.RepeatMode) error {
	return r.save("SaveRepeatMode", "repeat_mode", mode.String())
}

// LoadRepeatMode retrieves the saved repeat mode.
func (r *PreferencesRepository) LoadRepeatMode() (domain.RepeatMode, error) {
	var v sql.NullString
	err := r.db.QueryRow(`SELECT repeat_mode FROM preferences WHERE id = 1`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RepeatOff, domain.ErrPreferenceNotSet
	}
	if err != nil {
		return domain.RepeatOff, domain.NewRepositoryError("LoadRepeatMode", repoType, "read repeat_mode", err)
	}
	if !v.Valid {
		return domain.RepeatOff, domain.ErrPreferenceNotSet
	}

	mode, err := domain.ParseRepeatMode(v.String)
	if err != nil {
		return domain.RepeatOff, domain.NewRepositoryError("LoadRepeatMode", repoType, "corrupt repeat_mode", err)
	}
	return mode, nil
}

// Clear removes all saved preferences.
func (r *PreferencesRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM preferences`); err != nil {
		return domain.NewRepositoryError("Clear", repoType, "delete preferences", err)
	}
	return nil
}

// Close closes the database. Calling it again is a no-op.
func (r *PreferencesRepository) Close() error {
	var err error
	r.closeOnce.Do(func() {
		err = r.db.Close()
	})
	return err
}

// Verify interface implementation
var _ ports.PreferencesRepository = (*PreferencesRepository)(nil)
