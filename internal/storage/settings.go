// Package storage loads Fastlane adapter settings from Postgres and Redis
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/thenexusengine/tne_fastlane/internal/config"
	"github.com/thenexusengine/tne_fastlane/pkg/logger"
)

// Settings sources, used as metric labels
const (
	SourcePostgres = "postgres"
	SourceRedis    = "redis"
)

// LoadRecorder observes settings loads
type LoadRecorder interface {
	RecordSettingsLoad(source string, err error)
}

// SettingsStore reads namespaced key/value settings from Postgres
type SettingsStore struct {
	db       *sql.DB
	recorder LoadRecorder
}

// NewSettingsStore creates a settings store on db
func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// SetRecorder attaches a load observer
func (s *SettingsStore) SetRecorder(r LoadRecorder) {
	s.recorder = r
}

// Load returns every setting in namespace. An unknown namespace yields an
// empty set.
func (s *SettingsStore) Load(ctx context.Context, namespace string) (config.Settings, error) {
	settings, err := s.load(ctx, namespace)
	if s.recorder != nil {
		s.recorder.RecordSettingsLoad(SourcePostgres, err)
	}
	if err != nil {
		return nil, err
	}

	logger.Storage().Debug().
		Str("source", SourcePostgres).
		Str("namespace", namespace).
		Int("keys", len(settings)).
		Msg("settings loaded")
	return settings, nil
}

func (s *SettingsStore) load(ctx context.Context, namespace string) (config.Settings, error) {
	query := `
		SELECT key, value
		FROM fastlane_settings
		WHERE namespace = $1
	`

	rows, err := s.db.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := config.Settings{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}
	return settings, nil
}

// NewDBConnection opens and pings a Postgres connection pool
func NewDBConnection(host, port, user, password, dbname, sslmode string) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Settings are read once at startup
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
