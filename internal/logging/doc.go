// Package logging provides a small leveled logging facade for linkvault.
//
// Levels are DEBUG, INFO, WARN and ERROR. The active level is read from the
// LOG_LEVEL environment variable (DEBUG=1 also enables debug output) and
// defaults to INFO.
package logging
