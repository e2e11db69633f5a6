package device

import (
	"database/sql"
	"fmt"

	"lifelog/pulse-agent/internal/platform"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager owns the device identity. The device ID is generated once,
// persisted, and never regenerated: the backend keys its per-device sync
// cursor on it.
type Manager struct {
	db       *sql.DB
	platform platform.Platform
	logger   *zap.Logger
}

// NewManager creates a device manager.
func NewManager(db *sql.DB, p platform.Platform, logger *zap.Logger) *Manager {
	return &Manager{
		db:       db,
		platform: p,
		logger:   logger,
	}
}

// GetOrCreateDeviceID returns the persisted device ID, creating it on
// first run. Precedence for a new identity: configured value, platform
// identifier, random UUID.
func (m *Manager) GetOrCreateDeviceID(configuredID, deviceName string) (string, error) {
	var existing string
	err := m.db.QueryRow(`SELECT device_id FROM device_info WHERE id = 1`).Scan(&existing)
	switch {
	case err == nil:
		return existing, nil
	case err != sql.ErrNoRows:
		return "", fmt.Errorf("failed to read device id: %w", err)
	}

	deviceID := configuredID
	if deviceID == "" && m.platform != nil {
		if platformID, err := m.platform.GetDeviceID(); err == nil && platformID != "" {
			deviceID = platformID
		}
	}
	if deviceID == "" {
		deviceID = uuid.New().String()
	}

	if _, err := m.db.Exec(`
		INSERT INTO device_info (id, device_id, device_name)
		VALUES (1, ?, ?)
	`, deviceID, deviceName); err != nil {
		return "", fmt.Errorf("failed to persist device id: %w", err)
	}

	m.logger.Info("Device registered",
		zap.String("device_id", deviceID),
		zap.String("device_name", deviceName),
	)
	return deviceID, nil
}
