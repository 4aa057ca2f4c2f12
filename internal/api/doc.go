// Package api implements the HomeAlone HTTP API.
//
// Endpoints:
//
//	GET  /api/v1/health                    liveness and version
//	GET  /api/v1/metrics                   runtime and sender counters
//	GET  /api/v1/actions                   supported action names
//	POST /api/v1/relays/{address}/actions  send {"action":"on"} to a relay
//	GET  /api/v1/jobs                      scheduled jobs with next fire time
//	GET  /api/v1/jobs/{id}                 one scheduled job
//	GET  /api/v1/history                   send history, newest first
//	GET  /api/v1/ws                        WebSocket event stream
//
// A relay action answers 200 when the controller acknowledged it, 400 for a
// bad address or action, and 502 when every attempt failed. Jobs and history
// are optional and answer 503 when not configured.
//
// When api.auth.jwt_secret is set every endpoint except health requires an
// "Authorization: Bearer" token (or a token query parameter on /ws), and
// relay actions additionally require the control scope.
//
// WebSocket clients subscribe to channels with
//
//	{"type":"subscribe","id":"1","payload":{"channels":["relay.action"]}}
//
// and then receive one event frame per dispatched relay action.
package api
