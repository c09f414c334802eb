// Package http implements the REST surface of the sync server.
//
// Routes live under /api/v1: push and pull for the merge service, device
// registration, account usage, export and deletion, and an unauthenticated
// health check. Every protected route passes through the same chain: client
// IP rate limit, gzip, body limit, bearer authentication and per-user rate
// limit. Errors are rendered as models.ErrorResponse by writeError.
package http
