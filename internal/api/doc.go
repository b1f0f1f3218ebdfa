// Package api serves caption resolution, caption generation and the live
// caption overlay over HTTP.
//
// Routes:
//
//	GET  /healthz
//	GET  /metrics
//	GET  /videos/{id}/captions?lang=en,es
//	GET  /videos/{id}/captions/{lang}.vtt (or .srt)
//	GET  /videos/{id}/playlist
//	GET  /videos/{id}/overlay (websocket)
//	POST /transcriptions
//
// Errors are JSON objects with a single "error" field. Service error markers
// map onto status codes: validation is 400, not found 404, configuration
// 503, timeout 504 and everything else 502. A video whose captions are
// unavailable is reported with 200 and "unavailable": true.
package api
