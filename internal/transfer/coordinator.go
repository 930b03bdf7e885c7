package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/juju/ratelimit"

	"github.com/imamik/fwupgrade/internal/asa"
	"github.com/imamik/fwupgrade/internal/image"
)

// maxConfirmations bounds how many questions a delete may ask.
const maxConfirmations = 3

// progressStep is the percentage of the image between two progress reports.
const progressStep = 10

// ErrFileExists is returned by Transfer when the destination is already present.
var ErrFileExists = errors.New("destination file already exists")

// Session sends CLI commands to one device.
type Session interface {
	SendCommand(ctx context.Context, cmd string) (string, error)
	SendConfig(ctx context.Context, lines []string) (string, error)
}

// Uploader copies bytes to a path on the device.
type Uploader interface {
	Upload(ctx context.Context, src io.Reader, size int64, remotePath string) error
}

// Options configures a Coordinator.
type Options struct {
	// Location is the device file system, "disk0:" when empty.
	Location string
	// Destination is the file name on the device, the image name when empty.
	Destination string
	// RateLimit caps the upload in bytes per second. Zero means unlimited.
	RateLimit int64
	// Timeout bounds a single upload. Zero means no limit beyond ctx.
	Timeout time.Duration
	// Progress is called as bytes are read from the image.
	Progress func(sent, total int64)
}

// Space is the storage state of the destination location.
type Space struct {
	Total      uint64
	Free       uint64
	Required   uint64
	Sufficient bool
}

// String renders the space with human readable sizes.
func (s Space) String() string {
	return fmt.Sprintf("%s free of %s, %s required",
		humanize.IBytes(s.Free), humanize.IBytes(s.Total), humanize.IBytes(s.Required))
}

// Coordinator runs file operations for one image on one device.
type Coordinator struct {
	session  Session
	uploader Uploader
	img      *image.Image
	opts     Options
}

// NewCoordinator creates a Coordinator. The uploader may be nil when no
// upload is going to happen, for example in a dry run.
func NewCoordinator(session Session, uploader Uploader, img *image.Image, opts Options) *Coordinator {
	if opts.Location == "" {
		opts.Location = asa.DefaultFileLocation
	}
	if opts.Destination == "" {
		opts.Destination = img.Name
	}
	return &Coordinator{
		session:  session,
		uploader: uploader,
		img:      img,
		opts:     opts,
	}
}

// RemotePath is the full path of the destination file.
func (c *Coordinator) RemotePath() string {
	return asa.FilePath(c.opts.Location, c.opts.Destination)
}

// FileExists reports whether the destination file is present.
func (c *Coordinator) FileExists(ctx context.Context) (bool, error) {
	out, err := c.session.SendCommand(ctx, asa.Dir(c.RemotePath()))
	if err != nil {
		return false, fmt.Errorf("failed to list %s: %w", c.RemotePath(), err)
	}
	return asa.FileListed(out, c.opts.Destination), nil
}

// Space reads the free space of the destination location.
func (c *Coordinator) Space(ctx context.Context) (Space, error) {
	out, err := c.ListFiles(ctx)
	if err != nil {
		return Space{}, err
	}
	total, free, err := asa.ParseFreeSpace(out)
	if err != nil {
		return Space{}, fmt.Errorf("failed to read free space on %s: %w", c.opts.Location, err)
	}
	required := uint64(c.img.Size) // #nosec G115 -- file sizes are never negative
	return Space{
		Total:      total,
		Free:       free,
		Required:   required,
		Sufficient: free > required,
	}, nil
}

// SpaceAvailable reports whether the image fits into the free space.
func (c *Coordinator) SpaceAvailable(ctx context.Context) (bool, error) {
	s, err := c.Space(ctx)
	if err != nil {
		return false, err
	}
	return s.Sufficient, nil
}

// ListFiles returns the raw listing of the destination location.
func (c *Coordinator) ListFiles(ctx context.Context) (string, error) {
	out, err := c.session.SendCommand(ctx, asa.Dir(c.opts.Location))
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", c.opts.Location, err)
	}
	return out, nil
}

// ReclaimSpace deletes name from the destination location, accepting the
// defaults of any questions the device asks.
func (c *Coordinator) ReclaimSpace(ctx context.Context, name string) error {
	if name == "" || strings.ContainsAny(name, "/ ") {
		return fmt.Errorf("invalid file name %q", name)
	}

	out, err := c.session.SendCommand(ctx, asa.Delete(c.opts.Location, name))
	for i := 0; err == nil && i < maxConfirmations && asa.AwaitingConfirmation(out); i++ {
		out, err = c.session.SendCommand(ctx, "")
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", asa.FilePath(c.opts.Location, name), err)
	}
	if strings.Contains(out, "%Error") {
		return fmt.Errorf("failed to delete %s: %s", asa.FilePath(c.opts.Location, name), strings.TrimSpace(out))
	}
	return nil
}

// EnableSCP turns on the device's SCP server.
func (c *Coordinator) EnableSCP(ctx context.Context) error {
	if _, err := c.session.SendConfig(ctx, []string{asa.CmdScopyEnable}); err != nil {
		return fmt.Errorf("failed to enable scopy: %w", err)
	}
	return nil
}

// DisableSCP turns off the device's SCP server.
func (c *Coordinator) DisableSCP(ctx context.Context) error {
	if _, err := c.session.SendConfig(ctx, []string{asa.CmdScopyDisable}); err != nil {
		return fmt.Errorf("failed to disable scopy: %w", err)
	}
	return nil
}

// Transfer uploads the image. It never overwrites: if the destination
// already exists ErrFileExists is returned and nothing is sent.
func (c *Coordinator) Transfer(ctx context.Context) error {
	if c.uploader == nil {
		return errors.New("no uploader configured")
	}

	exists, err := c.FileExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%s: %w", c.RemotePath(), ErrFileExists)
	}

	src, err := c.img.Reader()
	if err != nil {
		return err
	}
	defer src.Close()

	var r io.Reader = src
	if c.opts.RateLimit > 0 {
		r = ratelimit.Reader(r, ratelimit.NewBucketWithRate(float64(c.opts.RateLimit), c.opts.RateLimit))
	}
	if c.opts.Progress != nil {
		r = &progressReader{r: r, total: c.img.Size, report: c.opts.Progress}
	}

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	if err := c.uploader.Upload(ctx, r, c.img.Size, c.RemotePath()); err != nil {
		return fmt.Errorf("failed to upload %s (%s): %w", c.img.Name, humanize.IBytes(uint64(c.img.Size)), err) // #nosec G115
	}
	return nil
}

// VerifyChecksum compares the device's MD5 digest of the destination file
// with the local image digest.
func (c *Coordinator) VerifyChecksum(ctx context.Context) (bool, error) {
	out, err := c.session.SendCommand(ctx, asa.VerifyMD5(c.opts.Location, c.opts.Destination))
	if err != nil {
		return false, fmt.Errorf("failed to verify %s: %w", c.RemotePath(), err)
	}
	digest, err := asa.ParseMD5(out)
	if err != nil {
		return false, fmt.Errorf("failed to verify %s: %w", c.RemotePath(), err)
	}
	return strings.EqualFold(digest, c.img.MD5), nil
}

// progressReader reports every progressStep percent and once on completion.
type progressReader struct {
	r      io.Reader
	sent   int64
	total  int64
	next   int64
	done   bool
	report func(sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
	}
	if p.due(err) {
		p.report(p.sent, p.total)
	}
	return n, err
}

func (p *progressReader) due(err error) bool {
	if p.done {
		return false
	}
	if p.total <= 0 {
		p.done = errors.Is(err, io.EOF)
		return p.done
	}
	if p.sent >= p.total {
		p.done = true
		return true
	}
	pct := p.sent * 100 / p.total
	if pct < p.next {
		return false
	}
	p.next = pct - pct%progressStep + progressStep
	return true
}
