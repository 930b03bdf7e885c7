// Package testing provides test utilities, fakes and fixtures for unit and
// scenario tests.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - FakeDevice: an in-memory firewall that answers the CLI commands the
//     upgrade issues and accepts uploads
//   - FakeDialer: opens sessions to FakeDevices by address
//   - JobBuilder: fluent builder for upgrade jobs
//   - MockDecider: testify mock for reclamation decisions
//   - MemoryObserver: records observability events
//
// Usage:
//
//	dev := testing.NewFakeDevice("fw-a", 8<<30)
//	dev.AddFile("asa912-smp-k8.bin", 37416960)
//
//	job := testing.NewJobBuilder().
//	    WithTarget("10.0.0.1").
//	    WithImage("asa962-smp-k8.bin").
//	    Build()
package testing
