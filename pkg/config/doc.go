// Package config loads typed configuration structs from environment
// variables, with .env file support for local development. Parsed configs
// are cached per type so all components share one view of the environment.
package config
