// Package wizard provides the interactive prompts of fwupgrade.
//
// RunWizard asks for the job settings that fwupgrade init writes to a job
// file, and Decider answers the space reclamation questions of an upgrade
// run by asking the operator. Both use charmbracelet/huh forms.
//
// Use BuildConfig to convert wizard answers to a config.Config, and
// WriteConfig to generate the YAML job file.
package wizard
