// Package observability reports upgrade progress.
//
// An [Observer] receives free-form progress lines and structured [Event]s.
// [ConsoleObserver] prints human readable lines through the standard log
// package; [LogrObserver] emits key/value records through a logr.Logger,
// which the CLI backs with a JSON sink for machine consumption.
package observability
