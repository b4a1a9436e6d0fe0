// Package api provides the REST client for the camera analysis service.
//
// Status endpoints, read by the poll fallback:
//   - GET /api/stream/status
//   - GET /api/progress
//
// Action endpoints, called by UI surfaces:
//   - GET  /api/cameras
//   - POST /api/stream/start, POST /api/stream/stop
//   - POST /api/query, POST /api/clear-database
//   - GET  /api/video/{filename}
package api
