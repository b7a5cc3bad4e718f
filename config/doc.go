// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server settings, the upstream endpoint list, the rate-limit
// recovery window, and proxy limits.
package config
