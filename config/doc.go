// Package config loads and validates the galleria configuration from
// defaults, config files, GALLERIA_-prefixed environment variables, and
// CLI flags, in increasing order of precedence.
package config
