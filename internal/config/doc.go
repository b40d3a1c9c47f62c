// Package config loads runtime configuration from multiple sources (YAML files,
// environment variables, CLI flags) with precedence: CLI flags > environment
// variables > YAML config > defaults. Besides the server settings it carries
// the initial container catalogue and the calculator defaults applied to
// omitted request fields.
package config
