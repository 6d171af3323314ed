// Package startup loads and validates linkvault configuration from
// environment variables and exposes build information injected at link time.
package startup
