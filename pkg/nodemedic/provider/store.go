package provider

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Store errors.
var (
	// ErrNotFound indicates the config doesn't exist.
	ErrNotFound = errors.New("provider config not found")

	// ErrNoDefault indicates no default config is set.
	ErrNoDefault = errors.New("no default provider config")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("provider store closed")
)

// Store persists provider configurations in SQLite.
//
// Invariant: at most one config is the default. Creating or updating a
// config as default clears the flag on all others in the same
// transaction. The first config created becomes the default
// automatically.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewStore opens (and if needed initializes) a provider store.
// The path should be a file path or ":memory:" for testing.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS provider_configs (
			id TEXT NOT NULL PRIMARY KEY,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			api_key TEXT NOT NULL,
			model TEXT NOT NULL,
			base_url TEXT NOT NULL DEFAULT '',
			is_default INTEGER NOT NULL DEFAULT 0,
			custom_config BLOB,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &Store{db: db}, nil
}

// Create validates and stores a new config, assigning its ID and
// timestamps. The first stored config becomes the default; an explicit
// default demotes any existing one.
func (s *Store) Create(cfg Config) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Config{}, ErrStoreClosed
	}

	if cfg.Kind == KindCustom && cfg.Custom != nil {
		normalized := cfg.Custom.Normalize()
		cfg.Custom = &normalized
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	cfg.ID = uuid.New().String()
	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	tx, err := s.db.Begin()
	if err != nil {
		return Config{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM provider_configs`).Scan(&count); err != nil {
		return Config{}, fmt.Errorf("count configs: %w", err)
	}
	if count == 0 {
		cfg.IsDefault = true
	}

	if cfg.IsDefault {
		if _, err := tx.Exec(`UPDATE provider_configs SET is_default = 0`); err != nil {
			return Config{}, fmt.Errorf("clear default: %w", err)
		}
	}

	customBytes, err := marshalCustom(cfg.Custom)
	if err != nil {
		return Config{}, fmt.Errorf("marshal custom config: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO provider_configs
			(id, kind, name, api_key, model, base_url, is_default, custom_config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, cfg.ID, string(cfg.Kind), cfg.Name, cfg.APIKey, cfg.Model, cfg.BaseURL,
		boolToInt(cfg.IsDefault), customBytes,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano)); err != nil {
		return Config{}, fmt.Errorf("insert config: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Config{}, fmt.Errorf("commit: %w", err)
	}
	return cfg, nil
}

// Get returns the config with the given ID.
func (s *Store) Get(id string) (Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Config{}, ErrStoreClosed
	}

	return scanConfig(s.db.QueryRow(`
		SELECT id, kind, name, api_key, model, base_url, is_default, custom_config, created_at, updated_at
		FROM provider_configs WHERE id = ?
	`, id))
}

// GetDefault returns the default config.
func (s *Store) GetDefault() (Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Config{}, ErrStoreClosed
	}

	cfg, err := scanConfig(s.db.QueryRow(`
		SELECT id, kind, name, api_key, model, base_url, is_default, custom_config, created_at, updated_at
		FROM provider_configs WHERE is_default = 1
	`))
	if errors.Is(err, ErrNotFound) {
		return Config{}, ErrNoDefault
	}
	return cfg, err
}

// List returns all configs, newest first.
func (s *Store) List() ([]Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT id, kind, name, api_key, model, base_url, is_default, custom_config, created_at, updated_at
		FROM provider_configs ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	defer rows.Close()

	configs := make([]Config, 0)
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate configs: %w", err)
	}
	return configs, nil
}

// Update replaces mutable fields of an existing config.
// Setting IsDefault demotes the previous default.
func (s *Store) Update(cfg Config) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Config{}, ErrStoreClosed
	}

	if cfg.Kind == KindCustom && cfg.Custom != nil {
		normalized := cfg.Custom.Normalize()
		cfg.Custom = &normalized
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Config{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if cfg.IsDefault {
		if _, err := tx.Exec(`UPDATE provider_configs SET is_default = 0 WHERE id != ?`, cfg.ID); err != nil {
			return Config{}, fmt.Errorf("clear default: %w", err)
		}
	}

	customBytes, err := marshalCustom(cfg.Custom)
	if err != nil {
		return Config{}, fmt.Errorf("marshal custom config: %w", err)
	}

	cfg.UpdatedAt = time.Now().UTC()
	res, err := tx.Exec(`
		UPDATE provider_configs
		SET kind = ?, name = ?, api_key = ?, model = ?, base_url = ?,
			is_default = ?, custom_config = ?, updated_at = ?
		WHERE id = ?
	`, string(cfg.Kind), cfg.Name, cfg.APIKey, cfg.Model, cfg.BaseURL,
		boolToInt(cfg.IsDefault), customBytes,
		cfg.UpdatedAt.Format(time.RFC3339Nano), cfg.ID)
	if err != nil {
		return Config{}, fmt.Errorf("update config: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Config{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return Config{}, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return Config{}, fmt.Errorf("commit: %w", err)
	}
	return cfg, nil
}

// Delete removes a config. If it was the default, the most recently
// created remaining config is promoted.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var wasDefault int
	err = tx.QueryRow(`SELECT is_default FROM provider_configs WHERE id = ?`, id).Scan(&wasDefault)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM provider_configs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete config: %w", err)
	}

	if wasDefault == 1 {
		if _, err := tx.Exec(`
			UPDATE provider_configs SET is_default = 1
			WHERE id = (SELECT id FROM provider_configs ORDER BY created_at DESC LIMIT 1)
		`); err != nil {
			return fmt.Errorf("promote default: %w", err)
		}
	}

	return tx.Commit()
}

// Close releases the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (Config, error) {
	var cfg Config
	var kind string
	var isDefault int
	var customBytes []byte
	var createdAt, updatedAt string

	err := row.Scan(&cfg.ID, &kind, &cfg.Name, &cfg.APIKey, &cfg.Model, &cfg.BaseURL,
		&isDefault, &customBytes, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return Config{}, ErrNotFound
	}
	if err != nil {
		return Config{}, fmt.Errorf("scan config: %w", err)
	}

	cfg.Kind = Kind(kind)
	cfg.IsDefault = isDefault == 1
	cfg.Custom, err = unmarshalCustom(customBytes)
	if err != nil {
		return Config{}, fmt.Errorf("unmarshal custom config: %w", err)
	}
	cfg.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	cfg.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return cfg, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
