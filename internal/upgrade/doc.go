// Package upgrade orchestrates a firmware upgrade of a standalone firewall
// or an HA pair.
//
// An Orchestrator walks each target through a fixed sequence of steps:
//
//	Connect -> EstablishRole (pair) -> ResolveFileState -> [ReclaimSpace] ->
//	EnableTransferProtocol -> Transfer -> DisableTransferProtocol ->
//	VerifyChecksum -> SetBootVariable -> ConfirmBootVariable ->
//	PersistConfig -> Reload -> Wait -> ReconnectAndVerifyVersion
//
// and a pair job ends with FinalFailover. Targets are processed one after
// the other; any fatal error stops the whole job so a pair is never left
// half upgraded with both units reloading.
//
// The device session, file upload, operator decisions and the post-reload
// dwell are injected through Dependencies, so the orchestrator runs against
// fakes in tests.
package upgrade
