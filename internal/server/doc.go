// Package server runs the sync server: the HTTP listener and the background
// workers, with signal handling and graceful shutdown.
package server
