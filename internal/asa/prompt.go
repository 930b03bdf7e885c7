package asa

import (
	"regexp"
	"strings"
)

var (
	// Matches "fw01>", "fw01#", "fw01(config)#" and failover-aware prompts
	// such as "fw01/pri/act#" on the last line of the output.
	promptRegex = regexp.MustCompile(`^([A-Za-z0-9][\w.\-/]*)(\([\w\-]+\))?([>#])\s*$`)

	// Questions the device asks before destructive commands: a trailing
	// "[confirm]" as in "Proceed with reload? [confirm]", or a bracketed
	// default followed by "?" as in "Delete filename [asa931-smp-k8.bin]?".
	confirmRegex = regexp.MustCompile(`(\[confirm\]|\[[^\]\n]*\]\?)\s*$`)

	passwordRegex = regexp.MustCompile(`(?i)password:\s*$`)
)

// Prompt is a parsed CLI prompt.
type Prompt struct {
	Hostname   string
	Mode       string // "(config)" and friends, empty in exec mode
	Privileged bool
}

// ParsePrompt inspects the last line of output and reports whether it is a
// CLI prompt.
func ParsePrompt(output string) (Prompt, bool) {
	m := promptRegex.FindStringSubmatch(lastLine(output))
	if m == nil {
		return Prompt{}, false
	}
	return Prompt{
		Hostname:   m[1],
		Mode:       m[2],
		Privileged: m[3] == "#",
	}, true
}

// AwaitingConfirmation reports whether the device is waiting for an answer.
func AwaitingConfirmation(output string) bool {
	return confirmRegex.MatchString(lastLine(output))
}

// AwaitingPassword reports whether the device asked for a password.
func AwaitingPassword(output string) bool {
	return passwordRegex.MatchString(lastLine(output))
}

func lastLine(output string) string {
	output = strings.TrimRight(output, " \t")
	if i := strings.LastIndexByte(output, '\n'); i >= 0 {
		return output[i+1:]
	}
	return output
}
