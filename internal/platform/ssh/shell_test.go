package ssh

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice emulates the ASA CLI on the far side of a pair of pipes.
type fakeDevice struct {
	hostname  string
	secret    string
	responses map[string]string
	// chunked responses are written in several writes before the prompt.
	chunked map[string][]string

	mu       sync.Mutex
	received []string
}

func (d *fakeDevice) commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.received...)
}

func (d *fakeDevice) run(in io.Reader, out io.WriteCloser) {
	defer func() { _ = out.Close() }()

	privileged := false
	config := false
	prompt := func() string {
		switch {
		case config:
			return d.hostname + "(config)# "
		case privileged:
			return d.hostname + "# "
		default:
			return d.hostname + "> "
		}
	}

	_, _ = fmt.Fprintf(out, "Type help or '?' for a list of available commands.\r\n%s", prompt())

	scanner := bufio.NewScanner(in)
	awaiting := ""
	for scanner.Scan() {
		line := scanner.Text()
		d.mu.Lock()
		d.received = append(d.received, line)
		d.mu.Unlock()

		switch {
		case awaiting == "enable":
			awaiting = ""
			if line == d.secret {
				privileged = true
			} else {
				_, _ = io.WriteString(out, "Invalid password\r\n")
			}
			_, _ = io.WriteString(out, "\r\n"+prompt())
		case awaiting == "reload":
			_, _ = io.WriteString(out, line+"\r\nRebooting....\r\n")
			return
		case line == "enable":
			awaiting = "enable"
			_, _ = io.WriteString(out, "enable\r\nPassword: ")
		case line == "reload":
			awaiting = "reload"
			_, _ = io.WriteString(out, "reload\r\nProceed with reload? [confirm]")
		case line == "configure terminal":
			config = true
			_, _ = io.WriteString(out, line+"\r\n"+prompt())
		case line == "end":
			config = false
			_, _ = io.WriteString(out, line+"\r\n"+prompt())
		case d.chunked[line] != nil:
			_, _ = io.WriteString(out, line+"\r\n")
			for _, part := range d.chunked[line] {
				_, _ = io.WriteString(out, part)
			}
			_, _ = io.WriteString(out, "\r\n"+prompt())
		default:
			resp := d.responses[line]
			if resp != "" {
				resp += "\r\n"
			}
			_, _ = io.WriteString(out, line+"\r\n"+resp+prompt())
		}
	}
}

func startShell(t *testing.T, d *fakeDevice) *Shell {
	t.Helper()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	go d.run(inR, outW)

	sh := newShell("fw01", inW, outR, func() error {
		_ = inW.Close()
		return outR.Close()
	}, 2*time.Second, d.secret)
	t.Cleanup(func() { _ = sh.Close() })

	require.NoError(t, sh.init(context.Background()))
	return sh
}

func TestShell_InitEntersEnableAndDisablesPager(t *testing.T) {
	d := &fakeDevice{hostname: "fw01", secret: "s3cret"}
	sh := startShell(t, d)

	assert.Equal(t, "fw01", sh.Hostname())
	assert.Equal(t, []string{"enable", "s3cret", "terminal pager 0"}, d.commands())
}

func TestShell_InitRejectedSecret(t *testing.T) {
	d := &fakeDevice{hostname: "fw01", secret: "s3cret"}

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	go d.run(inR, outW)

	sh := newShell("fw01", inW, outR, func() error {
		_ = inW.Close()
		return outR.Close()
	}, 2*time.Second, "wrong")
	defer func() { _ = sh.Close() }()

	err := sh.init(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "was rejected")
}

func TestShell_SendCommand(t *testing.T) {
	d := &fakeDevice{
		hostname: "fw01",
		secret:   "s3cret",
		responses: map[string]string{
			"show boot": "BOOT variable = disk0:/asa962-smp-k8.bin\r\nCurrent BOOT variable = disk0:/asa962-smp-k8.bin",
		},
	}
	sh := startShell(t, d)

	out, err := sh.SendCommand(context.Background(), "show boot")
	require.NoError(t, err)
	assert.Equal(t, "BOOT variable = disk0:/asa962-smp-k8.bin\nCurrent BOOT variable = disk0:/asa962-smp-k8.bin", out)
}

func TestShell_SendCommandQuestionMarkAtChunkBoundary(t *testing.T) {
	d := &fakeDevice{
		hostname: "fw01",
		secret:   "s3cret",
		chunked: map[string][]string{
			"show failover": {"Failover On\r\nLast Failover reason: Why?", "\r\nThis host: Primary - Active"},
		},
	}
	sh := startShell(t, d)

	out, err := sh.SendCommand(context.Background(), "show failover")
	require.NoError(t, err)
	assert.Equal(t, "Failover On\nLast Failover reason: Why?\nThis host: Primary - Active", out)
}

func TestShell_SendConfig(t *testing.T) {
	d := &fakeDevice{hostname: "fw01", secret: "s3cret"}
	sh := startShell(t, d)

	_, err := sh.SendConfig(context.Background(), []string{"boot system disk0:/asa962-smp-k8.bin"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"enable", "s3cret", "terminal pager 0",
		"configure terminal", "boot system disk0:/asa962-smp-k8.bin", "end",
	}, d.commands())
}

func TestShell_ReloadDropsSession(t *testing.T) {
	d := &fakeDevice{hostname: "fw01", secret: "s3cret"}
	sh := startShell(t, d)

	out, err := sh.SendCommand(context.Background(), "reload")
	require.NoError(t, err)
	assert.Contains(t, out, "[confirm]")

	_, err = sh.SendCommand(context.Background(), "y")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestShell_ContextCancelled(t *testing.T) {
	d := &fakeDevice{hostname: "fw01", secret: "s3cret"}
	sh := startShell(t, d)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The command may or may not be answered before cancellation is seen;
	// either outcome must return promptly.
	done := make(chan struct{})
	go func() {
		_, _ = sh.SendCommand(ctx, "show version")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SendCommand did not return after cancellation")
	}
}

func TestCleanOutput(t *testing.T) {
	out := cleanOutput("show failover\nFailover On\nThis host: Primary - Active\nfw01# ", "show failover")
	assert.Equal(t, "Failover On\nThis host: Primary - Active", out)

	assert.Equal(t, "", cleanOutput("terminal pager 0\nfw01# ", "terminal pager 0"))
}
