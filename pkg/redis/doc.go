// Package redis connects to Redis with startup retries and exposes a
// healthcheck probe. Used by the usage cache.
package redis
