package asa

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Role is the failover role a unit reports for itself.
type Role int

const (
	RoleUnknown Role = iota
	RoleActive
	RoleStandby
)

func (r Role) String() string {
	switch r {
	case RoleActive:
		return "active"
	case RoleStandby:
		return "standby"
	default:
		return "unknown"
	}
}

const (
	localHostMarker    = "This host:"
	standbyReadyMarker = "Standby Ready"
	activeMarker       = "Active"
	systemImageMarker  = "System image"
)

var (
	// "8571076608 bytes total (8194850816 bytes free)"
	spaceRegex = regexp.MustCompile(`(\d+) bytes total \((\d+) bytes free`)
	// "verify /MD5 (disk0:/asa962-smp-k8.bin) = 6c5b4d..."
	md5Regex = regexp.MustCompile(`(?i)verify\s+/md5\s+\(([^)]*)\)\s*=\s*([0-9a-f]{32})`)

	missingFileMarkers = []string{
		"%Error opening",
		"% Error opening",
		"No such file or directory",
		"No files in directory",
		"%Error",
	}
)

// ErrNoSpaceSummary is returned when dir output has no totals line.
var ErrNoSpaceSummary = errors.New("no 'bytes total (bytes free)' summary in dir output")

// ErrNoDigest is returned when verify output carries no MD5 digest.
var ErrNoDigest = errors.New("no md5 digest in verify output")

// ParseFreeSpace extracts total and free bytes from dir output.
func ParseFreeSpace(output string) (total, free uint64, err error) {
	m := spaceRegex.FindStringSubmatch(output)
	if m == nil {
		return 0, 0, ErrNoSpaceSummary
	}
	total, err = strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	free, err = strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return total, free, nil
}

// FileListed reports whether dir output for a single file shows that file.
func FileListed(output, name string) bool {
	for _, marker := range missingFileMarkers {
		if strings.Contains(output, marker) {
			return false
		}
	}
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[len(fields)-1] == name {
			return true
		}
	}
	return false
}

// ParseMD5 extracts the digest from verify /md5 output.
func ParseMD5(output string) (string, error) {
	m := md5Regex.FindStringSubmatch(output)
	if m == nil {
		return "", ErrNoDigest
	}
	return strings.ToLower(m[2]), nil
}

// ParseRole classifies show failover output. Only the local host line is
// considered; the peer's line starts with "Other host:".
func ParseRole(output string) Role {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, localHostMarker) {
			continue
		}
		switch {
		case strings.Contains(line, standbyReadyMarker):
			return RoleStandby
		case strings.Contains(line, activeMarker):
			return RoleActive
		}
	}
	return RoleUnknown
}

// SystemImageLines returns the show version lines naming the running image.
func SystemImageLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, systemImageMarker) {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	return lines
}

// FileEntry is one regular file in dir output.
type FileEntry struct {
	Name string
	Size uint64
}

// "100    -rwx  37416960     10:21:14 Jun 15 2017  asa912-smp-k8.bin"
var dirEntryRegex = regexp.MustCompile(`^\s*\d+\s+-[rwx-]{3}\s+(\d+)\s+.*\s(\S+)\s*$`)

// ParseDirListing returns the regular files in dir output, skipping
// directories and the summary line.
func ParseDirListing(output string) []FileEntry {
	var entries []FileEntry
	for _, line := range strings.Split(output, "\n") {
		m := dirEntryRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		size, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, FileEntry{Name: m[2], Size: size})
	}
	return entries
}
