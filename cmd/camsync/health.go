package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rickgao/camsync/internal/connection"
	"github.com/rickgao/camsync/internal/session"
	"github.com/rickgao/camsync/internal/surface"
)

// pinger checks a dependency. *pgxpool.Pool implements it.
type pinger interface {
	Ping(ctx context.Context) error
}

// surfaces are the view-models exposed on the admin endpoints.
type surfaces struct {
	camera   *surface.Camera
	chat     *surface.Chat
	settings *surface.Settings
}

func newSurfaces(s *session.Session) surfaces {
	return surfaces{
		camera:   surface.NewCamera(s, s.API(), nil),
		chat:     surface.NewChat(s, s.API(), 0, nil),
		settings: surface.NewSettings(s, s.API(), s, nil),
	}
}

// createHealthHandler serves the health check and debug endpoints. db may be
// nil when the journal is disabled.
func createHealthHandler(s *session.Session, ui surfaces, db pinger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		state := s.ConnectionState()
		health.Components["push"] = map[string]any{
			"state":     state,
			"available": s.PushAvailable(),
		}
		// Polling keeps the view current without push.
		if state != connection.StateOpen {
			health.Status = "degraded"
		}

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["journal"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["journal"] = "connected"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/view", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.View())
	})

	mux.HandleFunc("/debug/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.Stats())
	})

	mux.HandleFunc("/debug/indicator", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			Indicator surface.Indicator        `json:"indicator"`
			Status    surface.ConnectionStatus `json:"status"`
			Progress  string                   `json:"progress"`
		}{
			Indicator: ui.camera.Indicator(),
			Status:    ui.settings.Status(),
			Progress:  ui.chat.ProgressLine(),
		})
	})

	mux.HandleFunc("/reconnect", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ui.settings.Reconnect()
		w.WriteHeader(http.StatusAccepted)
	})

	return mux
}
