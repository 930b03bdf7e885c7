package testing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/imamik/fwupgrade/internal/transfer"
	"github.com/imamik/fwupgrade/internal/upgrade"
)

// FakeDialer connects to FakeDevices by address.
type FakeDialer struct {
	mu      sync.Mutex
	devices map[string]*FakeDevice
	// FailOpens makes the next n opens to an address fail.
	failOpens map[string]int
	opens     []string
}

// NewFakeDialer creates a dialer serving devices by address.
func NewFakeDialer(devices map[string]*FakeDevice) *FakeDialer {
	return &FakeDialer{devices: devices, failOpens: map[string]int{}}
}

// FailNextOpens makes the next n opens to address fail.
func (d *FakeDialer) FailNextOpens(address string, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failOpens[address] = n
}

// Opens returns the addresses of all successful and failed opens in order.
func (d *FakeDialer) Opens() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.opens...)
}

// Open starts a session to the device at target.Address.
func (d *FakeDialer) Open(ctx context.Context, target upgrade.DeviceTarget) (upgrade.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.opens = append(d.opens, target.Address)
	if d.failOpens[target.Address] > 0 {
		d.failOpens[target.Address]--
		return nil, errors.New("dial tcp: connection refused")
	}
	dev, ok := d.devices[target.Address]
	if !ok {
		return nil, fmt.Errorf("dial tcp %s: no route to host", target.HostPort())
	}
	return dev.Open(), nil
}

// Uploader returns the device itself, which accepts uploads.
func (d *FakeDialer) Uploader(target upgrade.DeviceTarget) (transfer.Uploader, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dev, ok := d.devices[target.Address]
	if !ok {
		return nil, fmt.Errorf("unknown device %s", target.Address)
	}
	return dev, nil
}

// RecordingWaiter returns immediately and records every wait.
type RecordingWaiter struct {
	mu    sync.Mutex
	Waits []time.Duration
	// Hook runs on every wait, for example to change device state mid-dwell.
	Hook func(reason string)
}

// Wait records d.
func (w *RecordingWaiter) Wait(ctx context.Context, d time.Duration, reason string) error {
	w.mu.Lock()
	w.Waits = append(w.Waits, d)
	hook := w.Hook
	w.mu.Unlock()
	if hook != nil {
		hook(reason)
	}
	return ctx.Err()
}

// ScriptedDecider deletes the listed files in order and declines afterwards.
type ScriptedDecider struct {
	Files    []string
	Asked    int
	Declined bool
}

// ConfirmReclaim agrees while files remain.
func (s *ScriptedDecider) ConfirmReclaim(_ context.Context, _ upgrade.DeviceTarget, _ transfer.Space) (bool, error) {
	s.Asked++
	if len(s.Files) == 0 {
		s.Declined = true
		return false, nil
	}
	return true, nil
}

// ChooseFileToDelete returns the next file.
func (s *ScriptedDecider) ChooseFileToDelete(_ context.Context, _ upgrade.DeviceTarget, _ string) (string, error) {
	if len(s.Files) == 0 {
		return "", nil
	}
	name := s.Files[0]
	s.Files = s.Files[1:]
	return name, nil
}
