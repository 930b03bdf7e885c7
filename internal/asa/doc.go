// Package asa holds the Cisco ASA command vocabulary and the parsers for
// the command output the upgrade workflow depends on.
//
// Command strings are bit exact; devices reject anything else. Parsers are
// tolerant of surrounding noise (banners, echoed commands, prompts) because
// the interactive session returns the raw terminal text.
package asa
