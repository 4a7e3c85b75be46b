// Package share holds build-time constants
package share

// VERSION the release version, overridden at build time
var VERSION = "0.9.0"

// PRVERSION the git commit and build time, overridden at build time
var PRVERSION = "DEV"

// BUILDNAME the binary name
var BUILDNAME = "guardianbridge"
