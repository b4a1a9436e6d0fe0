// Package surface holds the view-models behind the camera, chat and
// settings screens. Every view-model reads the shared session view through
// session.Sync and issues commands through a narrow slice of the REST client.
package surface

import "github.com/rickgao/camsync/internal/api"

var (
	_ CameraAPI   = (*api.Client)(nil)
	_ ChatAPI     = (*api.Client)(nil)
	_ SettingsAPI = (*api.Client)(nil)
)
