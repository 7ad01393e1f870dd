// Package version carries the qualifier release version surfaced by the CLI.
package version

// Current is the release version, without a "v" prefix.
const Current = "0.3.0"
