package surface

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickgao/camsync/internal/api"
	"github.com/rickgao/camsync/internal/session"
)

// SettingsAPI is the part of *api.Client the settings screen uses.
type SettingsAPI interface {
	ClearDatabase(ctx context.Context) (*api.ClearDatabaseResponse, error)
	BaseURL() string
}

// Reconnector retries a push channel that was given up on.
// *session.Session implements it.
type Reconnector interface {
	Reconnect()
}

// ConnectionStatus is what the settings screen shows about the server link.
type ConnectionStatus struct {
	Server string `json:"server"`
	State  string `json:"state"`
	Live   bool   `json:"live"`
}

// Settings is the settings screen view-model.
type Settings struct {
	sync      session.Sync
	api       SettingsAPI
	reconnect Reconnector
	logger    *slog.Logger
}

// NewSettings creates Settings. reconnect may be nil.
func NewSettings(s session.Sync, a SettingsAPI, reconnect Reconnector, logger *slog.Logger) *Settings {
	if logger == nil {
		logger = slog.Default()
	}
	return &Settings{sync: s, api: a, reconnect: reconnect, logger: logger.With("surface", "settings")}
}

// Status reports the push channel state.
func (s *Settings) Status() ConnectionStatus {
	return ConnectionStatus{
		Server: s.api.BaseURL(),
		State:  s.sync.ConnectionState().String(),
		Live:   s.sync.PushAvailable(),
	}
}

// ClearDatabase wipes every indexed clip on the server.
func (s *Settings) ClearDatabase(ctx context.Context) (string, error) {
	resp, err := s.api.ClearDatabase(ctx)
	if err != nil {
		return "", fmt.Errorf("clear database: %w", err)
	}
	s.logger.Info("database cleared", "status", resp.Status)
	return resp.Message, nil
}

// Reconnect retries the push channel. It reports false when no retry is
// possible from this screen.
func (s *Settings) Reconnect() bool {
	if s.reconnect == nil {
		return false
	}
	s.reconnect.Reconnect()
	return true
}
