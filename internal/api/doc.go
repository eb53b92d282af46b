// Package api defines the JSON payloads of the daemon control API and the
// HTTP client the CLI uses to reach it.
package api
