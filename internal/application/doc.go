// Package application provides application initialization and dependency wiring.
// It creates the container catalogue, metrics recorder, handlers, routers and
// HTTP server, leaving the main package to CLI parsing and orchestration.
package application
