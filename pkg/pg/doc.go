// Package pg wires the pgx connection pool: configuration from environment,
// connection with startup retries, goose migrations, and a healthcheck probe.
package pg
