// Package errors provides the structured error type used for client-side
// failures that never reach the wire: invalid configuration, invalid
// endpoint descriptors and lookups of endpoints a source does not expose.
package errors
