// Package core holds the HTTP response envelope and error types shared by
// all API modules.
package core
