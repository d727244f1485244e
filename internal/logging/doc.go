// Package logging provides opt-in file-based logging with rotation for
// trove. With --debug set, commands write structured JSON logs under
// ~/.trove/logs/ for troubleshooting.
//
// Without --debug, logging stays minimal and goes to stderr only.
package logging
