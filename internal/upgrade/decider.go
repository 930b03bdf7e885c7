package upgrade

import (
	"context"
	"slices"
	"sync"

	"github.com/imamik/fwupgrade/internal/asa"
	"github.com/imamik/fwupgrade/internal/transfer"
)

// ListDecider reclaims space without asking anyone: it deletes the named
// files, in order, when they are present on the target. Once no listed
// file is left on a target it declines, which aborts the job.
type ListDecider struct {
	files []string

	mu      sync.Mutex
	deleted map[string][]string
}

// NewListDecider returns a decider that may delete the given files.
func NewListDecider(files []string) *ListDecider {
	return &ListDecider{
		files:   slices.Clone(files),
		deleted: make(map[string][]string),
	}
}

// ConfirmReclaim agrees when at least one listed file has not been used yet
// on this target.
func (d *ListDecider) ConfirmReclaim(_ context.Context, target DeviceTarget, _ transfer.Space) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.remaining(target)) > 0, nil
}

// ChooseFileToDelete returns the first unused listed file that appears in
// the listing, or "" when none does.
func (d *ListDecider) ChooseFileToDelete(_ context.Context, target DeviceTarget, listing string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	present := make(map[string]bool)
	for _, e := range asa.ParseDirListing(listing) {
		present[e.Name] = true
	}

	key := target.HostPort()
	for _, name := range d.remaining(target) {
		d.deleted[key] = append(d.deleted[key], name)
		if present[name] {
			return name, nil
		}
	}
	return "", nil
}

func (d *ListDecider) remaining(target DeviceTarget) []string {
	used := d.deleted[target.HostPort()]
	var out []string
	for _, f := range d.files {
		if !slices.Contains(used, f) {
			out = append(out, f)
		}
	}
	return out
}
