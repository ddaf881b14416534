// Package logging builds the process-wide zap logger. All diagnostic
// output is written to stderr so extraction results on stdout stay
// machine-parseable.
package logging
