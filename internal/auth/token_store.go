package auth

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store persists the device credentials and the sync cursor. Both live
// in the single device_info row created at device registration.
type Store struct {
	mu sync.Mutex

	db           *sql.DB
	accessToken  string
	refreshToken string
	lastSync     time.Time

	logger *zap.Logger
}

// NewStore loads persisted credentials. seedAccess/seedRefresh come from
// configuration and are persisted when the store holds nothing yet, so a
// freshly provisioned agent can start from config-supplied tokens.
func NewStore(db *sql.DB, seedAccess, seedRefresh string, logger *zap.Logger) (*Store, error) {
	s := &Store{
		db:     db,
		logger: logger,
	}

	var access, refresh sql.NullString
	var lastSync sql.NullTime
	err := db.QueryRow(`
		SELECT access_token, refresh_token, last_sync_at FROM device_info WHERE id = 1
	`).Scan(&access, &refresh, &lastSync)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	s.accessToken = access.String
	s.refreshToken = refresh.String
	if lastSync.Valid {
		s.lastSync = lastSync.Time
	}

	if s.accessToken == "" && seedAccess != "" {
		if err := s.SetCredentials(seedAccess, seedRefresh); err != nil {
			return nil, err
		}
		logger.Info("Seeded credentials from configuration")
	}

	return s, nil
}

// Credentials returns the current token pair.
func (s *Store) Credentials() (accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

// HasCredentials reports whether an access token is available.
func (s *Store) HasCredentials() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken != ""
}

// SetCredentials persists a new token pair, replacing the old one.
func (s *Store) SetCredentials(accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`
		UPDATE device_info SET access_token = ?, refresh_token = ? WHERE id = 1
	`, accessToken, refreshToken); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}

	s.accessToken = accessToken
	s.refreshToken = refreshToken
	return nil
}

// LastSyncTimestamp returns the sync cursor; zero when the device has
// never synced.
func (s *Store) LastSyncTimestamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync
}

// AdvanceLastSync persists a new sync cursor. The cursor only moves
// forward.
func (s *Store) AdvanceLastSync(ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !ts.After(s.lastSync) {
		return nil
	}

	if _, err := s.db.Exec(`
		UPDATE device_info SET last_sync_at = ? WHERE id = 1
	`, ts); err != nil {
		return fmt.Errorf("failed to persist sync cursor: %w", err)
	}

	s.lastSync = ts
	return nil
}
