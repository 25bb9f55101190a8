// Package config loads and validates the service configuration from
// defaults, an optional YAML file and KANBAN_* environment variables.
package config
