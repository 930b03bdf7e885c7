// Package config defines the job file of an upgrade run.
//
// A [Config] is read from YAML with [LoadFile], overlaid with secrets from
// the environment and command-line flags, completed by the interactive
// wizard when needed, and finally turned into an [upgrade.Job] with
// [Config.Job]. Operational timeouts come from the environment through
// [LoadTimeouts].
package config
