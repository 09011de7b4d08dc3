// Package httpserver runs the HTTP listener with graceful shutdown and
// provides liveness/readiness probe handlers.
package httpserver
