// Package retry provides exponential backoff retry logic for transient failures.
//
// The [Do] function retries an operation with configurable max attempts,
// initial delay, and maximum delay. It is used for SSH dialing and for
// reconnecting to a device after it has been reloaded.
package retry
