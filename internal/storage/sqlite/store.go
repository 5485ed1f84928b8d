package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/embedchat/embedchat-gateway/internal/storage"
)

// Store is a SQLite implementation of the gateway's durability layer:
// licenses plus the append-only interaction and denial logs.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS licenses (
			key TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			status TEXT NOT NULL,
			plan TEXT,
			allowed_domains TEXT,
			stripe_session_id TEXT UNIQUE,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS interactions (
			id TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			usage_type TEXT NOT NULL,
			license_key TEXT,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			client_ip TEXT,
			client_origin TEXT,
			client_user_agent TEXT,
			status TEXT NOT NULL,
			error_message TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS denials (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			reason TEXT NOT NULL,
			license_key TEXT,
			origin TEXT,
			client_ip TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_licenses_session ON licenses(stripe_session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_ip_created ON interactions(client_ip, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_license ON interactions(license_key)`,
		`CREATE INDEX IF NOT EXISTS idx_denials_ip ON denials(client_ip)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
