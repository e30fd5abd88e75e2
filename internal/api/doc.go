// Package api implements the HTTP API and WebSocket server for the relay
// sequencer.
//
// This package provides:
//   - The browser control page and its assets (package web)
//   - GET /status and POST /rpc, the sequencer's command interface
//   - Read-only /api/v1 endpoints for health, metrics and the sequence list
//   - A WebSocket hub sending a status snapshot on connect, then every playback change
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - Optional bearer-token auth on /rpc
//
// # Commands
//
// POST /rpc accepts {"command": ..., "sequenceID": ..., "speed": ...}.
// A body that is not a JSON object is a 400. A missing command, an unknown
// command or a missing required field is a 422 with a plain-text reason;
// out-of-range values are clamped, never rejected.
//
// # Graceful Degradation
//
// MQTT and InfluxDB are optional. The server reports their state on
// /api/v1/health and /api/v1/metrics but serves every endpoint without them.
package api
