package testing

import (
	"context"
	"crypto/md5" //nolint:gosec // ASA digests are MD5
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/imamik/fwupgrade/internal/asa"
)

// ErrSessionDropped is returned by a FakeSession once its device reloads.
var ErrSessionDropped = errors.New("session dropped")

// FakeDevice emulates the CLI and file system of one firewall unit.
// Zero-valued behaviour is a healthy standalone unit.
type FakeDevice struct {
	mu sync.Mutex

	Hostname string
	Location string
	Capacity uint64
	Role     asa.Role
	Peer     *FakeDevice

	// RunningImage is reported by show version.
	RunningImage string
	BootImage    string
	Saved        bool
	ScopyEnabled bool
	Reloads      int

	// CorruptUploads stores uploads with a digest that never matches.
	CorruptUploads bool
	// IgnoreFailover makes failover active a no-op.
	IgnoreFailover bool
	// HideSystemImage drops the System image line from show version.
	HideSystemImage bool
	// FailCommands makes the listed commands return an error.
	FailCommands map[string]error

	files    map[string]int64
	digests  map[string]string
	commands []string
	uploads  []string
	pending  string
}

// NewFakeDevice returns a standalone unit with the given storage capacity.
func NewFakeDevice(hostname string, capacity uint64) *FakeDevice {
	return &FakeDevice{
		Hostname:     hostname,
		Location:     asa.DefaultFileLocation,
		Capacity:     capacity,
		RunningImage: "asa912-smp-k8.bin",
		BootImage:    "asa912-smp-k8.bin",
		files:        map[string]int64{},
		digests:      map[string]string{},
	}
}

// Pair links two devices as an HA pair with a active and b standby.
func Pair(a, b *FakeDevice) {
	a.Peer, b.Peer = b, a
	a.Role, b.Role = asa.RoleActive, asa.RoleStandby
}

// AddFile places a file on the device.
func (d *FakeDevice) AddFile(name string, size int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files[name] = size
	d.digests[name] = ""
}

// AddFileWithDigest places a file with a known MD5 digest on the device.
func (d *FakeDevice) AddFileWithDigest(name string, size int64, digest string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files[name] = size
	d.digests[name] = digest
}

// HasFile reports whether name is stored on the device.
func (d *FakeDevice) HasFile(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.files[name]
	return ok
}

// Free returns the free bytes on the device.
func (d *FakeDevice) Free() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.free()
}

// Commands returns every command received so far, in order.
func (d *FakeDevice) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

// Uploads returns the remote paths of all uploads.
func (d *FakeDevice) Uploads() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.uploads...)
}

// CurrentRole returns the device's failover role.
func (d *FakeDevice) CurrentRole() asa.Role {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Role
}

// Open starts a new CLI session.
func (d *FakeDevice) Open() *FakeSession {
	return &FakeSession{device: d}
}

// Upload stores the uploaded bytes at remotePath.
func (d *FakeDevice) Upload(ctx context.Context, src io.Reader, size int64, remotePath string) error {
	h := md5.New() //nolint:gosec // ASA digests are MD5
	n, err := io.Copy(h, src)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.ScopyEnabled {
		return errors.New("scp: scopy is disabled")
	}
	if n != size {
		return fmt.Errorf("short upload: %d of %d bytes", n, size)
	}
	if uint64(size) >= d.free() { // #nosec G115
		return errors.New("no space left on device")
	}

	name := strings.TrimPrefix(remotePath, d.Location+"/")
	digest := hex.EncodeToString(h.Sum(nil))
	if d.CorruptUploads {
		digest = strings.Repeat("0", 32)
	}
	d.files[name] = size
	d.digests[name] = digest
	d.uploads = append(d.uploads, remotePath)
	return nil
}

func (d *FakeDevice) free() uint64 {
	var used uint64
	for _, size := range d.files {
		used += uint64(size) // #nosec G115
	}
	if used >= d.Capacity {
		return 0
	}
	return d.Capacity - used
}

func (d *FakeDevice) handle(cmd string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.commands = append(d.commands, cmd)
	if err := d.FailCommands[cmd]; err != nil {
		return "", err
	}

	if d.pending != "" {
		return d.answer(cmd)
	}

	loc := d.Location
	switch {
	case cmd == asa.CmdShowFailover:
		return d.showFailover(), nil
	case cmd == asa.CmdFailoverActive:
		if !d.IgnoreFailover {
			d.Role = asa.RoleActive
			if d.Peer != nil {
				d.Peer.mu.Lock()
				d.Peer.Role = asa.RoleStandby
				d.Peer.mu.Unlock()
			}
		}
		return "", nil
	case cmd == asa.CmdShowVersion:
		return d.showVersion(), nil
	case cmd == asa.CmdShowBoot:
		return fmt.Sprintf("BOOT variable = %s\nCurrent BOOT variable = %s\nCONFIG_FILE variable =\nCurrent CONFIG_FILE variable =",
			asa.FilePath(loc, d.BootImage), asa.FilePath(loc, d.BootImage)), nil
	case cmd == asa.CmdWriteMem:
		d.Saved = true
		return "Building configuration...\nCryptochecksum: 1a2b3c4d 5e6f7a8b 9c0d1e2f 3a4b5c6d\n[OK]", nil
	case cmd == asa.CmdReload:
		d.pending = "reload"
		return "Proceed with reload? [confirm]", nil
	case cmd == asa.Dir(loc):
		return d.dir(), nil
	case strings.HasPrefix(cmd, "dir "+loc+"/"):
		name := strings.TrimPrefix(cmd, "dir "+loc+"/")
		if size, ok := d.files[name]; ok {
			return fmt.Sprintf("Directory of %s/%s\n\n7      -rwx  %d       10:21:14 Jun 15 2017  %s\n\n%s",
				loc, name, size, name, d.summary()), nil
		}
		return fmt.Sprintf("%%Error opening %s/%s (No such file or directory)", loc, name), nil
	case strings.HasPrefix(cmd, "delete "+loc+"/"):
		name := strings.TrimPrefix(cmd, "delete "+loc+"/")
		d.pending = "delete-name:" + name
		return fmt.Sprintf("Delete filename [%s]?", name), nil
	case strings.HasPrefix(cmd, "verify /md5 "+loc+"/"):
		name := strings.TrimPrefix(cmd, "verify /md5 "+loc+"/")
		if _, ok := d.files[name]; !ok {
			return fmt.Sprintf("%%Error opening %s/%s (No such file or directory)", loc, name), nil
		}
		digest := d.digests[name]
		if digest == "" {
			digest = strings.Repeat("f", 32)
		}
		return fmt.Sprintf("!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!Done!\nverify /MD5 (%s/%s) = %s", loc, name, digest), nil
	case cmd == "":
		return "", nil
	}
	return fmt.Sprintf("ERROR: %% Invalid input detected at '^' marker.\n%s", cmd), nil
}

func (d *FakeDevice) answer(input string) (string, error) {
	pending := d.pending
	d.pending = ""

	switch {
	case pending == "reload":
		if input != asa.CmdConfirm && input != "" {
			return "", nil
		}
		d.Reloads++
		d.RunningImage = d.BootImage
		d.ScopyEnabled = false
		return "", ErrSessionDropped
	case strings.HasPrefix(pending, "delete-name:"):
		name := strings.TrimPrefix(pending, "delete-name:")
		if input != "" {
			name = input
		}
		d.pending = "delete-confirm:" + name
		return fmt.Sprintf("Delete %s/%s? [confirm]", d.Location, name), nil
	case strings.HasPrefix(pending, "delete-confirm:"):
		name := strings.TrimPrefix(pending, "delete-confirm:")
		if _, ok := d.files[name]; !ok {
			return fmt.Sprintf("%%Error deleting %s/%s (No such file or directory)", d.Location, name), nil
		}
		delete(d.files, name)
		delete(d.digests, name)
		return "", nil
	}
	return "", nil
}

func (d *FakeDevice) configure(line string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.commands = append(d.commands, line)
	switch {
	case line == asa.CmdScopyEnable:
		d.ScopyEnabled = true
	case line == asa.CmdScopyDisable:
		d.ScopyEnabled = false
	case strings.HasPrefix(line, "boot system "+d.Location+"/"):
		d.BootImage = strings.TrimPrefix(line, "boot system "+d.Location+"/")
	default:
		return "ERROR: % Invalid input detected at '^' marker."
	}
	return ""
}

func (d *FakeDevice) dir() string {
	names := make([]string, 0, len(d.files))
	for name := range d.files {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Directory of %s/\n\n", d.Location)
	fmt.Fprintf(&b, "11     drwx  4096         12:43:52 Mar 04 2016  log\n")
	for i, name := range names {
		fmt.Fprintf(&b, "%-6d -rwx  %-12d 10:21:14 Jun 15 2017  %s\n", 100+i, d.files[name], name)
	}
	b.WriteString("\n")
	b.WriteString(d.summary())
	return b.String()
}

func (d *FakeDevice) summary() string {
	return fmt.Sprintf("%d bytes total (%d bytes free)", d.Capacity, d.free())
}

func (d *FakeDevice) showFailover() string {
	if d.Peer == nil {
		return "Failover Off\nFailover unit Primary\nFailover LAN Interface: not Configured"
	}
	d.Peer.mu.Lock()
	peerRole := d.Peer.Role
	d.Peer.mu.Unlock()
	return fmt.Sprintf("Failover On\nFailover unit Primary\nFailover LAN Interface: folink GigabitEthernet0/2 (up)\n"+
		"        This host: Primary - %s\n                Active time: 1256 (sec)\n"+
		"        Other host: Secondary - %s\n                Active time: 0 (sec)",
		roleText(d.Role), roleText(peerRole))
}

func (d *FakeDevice) showVersion() string {
	out := "Cisco Adaptive Security Appliance Software Version 9.6(2)\nDevice Manager Version 7.6(2)\n\n" +
		"Compiled on Tue 23-Aug-16 18:38 PDT by builders\n"
	if !d.HideSystemImage {
		out += fmt.Sprintf("System image file is \"%s\"\n", asa.FilePath(d.Location, d.RunningImage))
	}
	return out + fmt.Sprintf("Config file at boot was \"startup-config\"\n\n%s up 2 mins 11 secs", d.Hostname)
}

func roleText(r asa.Role) string {
	switch r {
	case asa.RoleActive:
		return "Active"
	case asa.RoleStandby:
		return "Standby Ready"
	default:
		return "Failed"
	}
}

// FakeSession is one CLI session to a FakeDevice.
type FakeSession struct {
	device  *FakeDevice
	dropped bool
	closed  bool
}

// SendCommand runs cmd on the device.
func (s *FakeSession) SendCommand(ctx context.Context, cmd string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.dropped || s.closed {
		return "", ErrSessionDropped
	}
	out, err := s.device.handle(cmd)
	if errors.Is(err, ErrSessionDropped) {
		s.dropped = true
	}
	return out, err
}

// SendConfig applies configuration lines.
func (s *FakeSession) SendConfig(ctx context.Context, lines []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.dropped || s.closed {
		return "", ErrSessionDropped
	}
	var out []string
	for _, line := range lines {
		if err := s.device.FailCommands[line]; err != nil {
			return strings.Join(out, "\n"), err
		}
		if o := s.device.configure(line); o != "" {
			out = append(out, o)
		}
	}
	return strings.Join(out, "\n"), nil
}

// Close ends the session.
func (s *FakeSession) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *FakeSession) Closed() bool {
	return s.closed
}
