// Package jishaku implements the debugging and administration cog: an
// owner-only command tree for runtime status, extension management, Go
// evaluation, shell access, file display, and voice playback.
package jishaku

// Version is the cog release version, surfaced by the status command.
const Version = "2.6.0"
