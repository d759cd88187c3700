// Package api implements the HTTP REST API and WebSocket server of the IR
// climate service.
//
// This package provides:
//   - REST endpoints to read climate devices and send them commands
//   - State change history per device
//   - The command audit trail
//   - WebSocket hub for real-time state broadcasts, filtered by device and
//     replaying current state on subscribe
//   - The Prometheus scrape endpoint
//   - The embedded climate dashboard
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Routes
//
//	GET  /api/v1/health
//	GET  /api/v1/system
//	GET  /api/v1/climates
//	GET  /api/v1/climates/{id}
//	GET  /api/v1/climates/{id}/history?limit=50
//	POST /api/v1/climates/{id}/commands
//	PUT  /api/v1/climates/{id}/temperature      {"temperature": 22}
//	PUT  /api/v1/climates/{id}/fan_mode         {"fan_mode": "low"}
//	PUT  /api/v1/climates/{id}/operation_mode   {"operation_mode": "cool"}
//	PUT  /api/v1/climates/{id}/away_mode        {"away_mode": true}
//	POST /api/v1/climates/{id}/turn_on
//	POST /api/v1/climates/{id}/turn_off
//	GET  /api/v1/audit?device_id=&source=&result=&limit=&offset=
//	GET  /api/v1/ws
//	GET  /metrics
//	GET  /panel/                                 (climate dashboard)
//
// Commands run synchronously through the bridge and respond with the
// resulting state. A command whose state has no table entry still succeeds:
// the state is kept and nothing is transmitted.
package api
