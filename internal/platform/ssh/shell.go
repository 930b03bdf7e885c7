package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/imamik/fwupgrade/internal/asa"
)

// ErrSessionClosed is returned when the device closed the CLI session.
var ErrSessionClosed = errors.New("session closed by device")

// Shell is an interactive CLI session on one device. It is not safe for
// concurrent use; commands are sent one at a time and each call returns once
// the device shows its prompt again or asks a question.
type Shell struct {
	host    string
	stdin   io.Writer
	chunks  chan string
	readErr error
	pending strings.Builder
	closer  func() error
	timeout time.Duration
	secret  string
	prompt  asa.Prompt
}

// OpenShell connects, requests a PTY, enters privileged mode and disables
// paging.
func (c *Client) OpenShell(ctx context.Context) (*Shell, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	session, err := client.NewSession()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to create SSH session on %s: %w", c.config.Host, err)
	}

	closeAll := func() error {
		_ = session.Close()
		return client.Close()
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	// Wide terminal so long lines such as dir listings are not wrapped.
	if err := session.RequestPty("vt100", 24, 511, modes); err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("failed to request pty on %s: %w", c.config.Host, err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("failed to open stdin on %s: %w", c.config.Host, err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("failed to open stdout on %s: %w", c.config.Host, err)
	}
	if err := session.Shell(); err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("failed to start shell on %s: %w", c.config.Host, err)
	}

	sh := newShell(c.config.Host, stdin, stdout, closeAll, c.config.CommandTimeout, c.config.EnableSecret)
	if err := sh.init(ctx); err != nil {
		_ = sh.Close()
		return nil, err
	}
	return sh, nil
}

func newShell(host string, stdin io.Writer, stdout io.Reader, closer func() error, timeout time.Duration, secret string) *Shell {
	s := &Shell{
		host:    host,
		stdin:   stdin,
		chunks:  make(chan string, 64),
		closer:  closer,
		timeout: timeout,
		secret:  secret,
	}
	go s.pump(stdout)
	return s
}

// pump forwards device output until the session ends.
func (s *Shell) pump(stdout io.Reader) {
	buf := make([]byte, 32*1024)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			s.chunks <- strings.ReplaceAll(string(buf[:n]), "\r", "")
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrSessionClosed
			}
			s.readErr = err
			close(s.chunks)
			return
		}
	}
}

func (s *Shell) init(ctx context.Context) error {
	out, err := s.readUntil(ctx, isPrompt)
	if err != nil {
		return fmt.Errorf("no CLI prompt from %s: %w", s.host, err)
	}
	s.prompt, _ = asa.ParsePrompt(out)

	if !s.prompt.Privileged {
		if err := s.write(asa.CmdEnable); err != nil {
			return err
		}
		out, err = s.readUntil(ctx, func(o string) bool {
			return asa.AwaitingPassword(o) || isPrompt(o)
		})
		if err != nil {
			return fmt.Errorf("enable on %s: %w", s.host, err)
		}
		if asa.AwaitingPassword(out) {
			if err := s.write(s.secret); err != nil {
				return err
			}
			if out, err = s.readUntil(ctx, isPrompt); err != nil {
				return fmt.Errorf("enable on %s: %w", s.host, err)
			}
		}
		s.prompt, _ = asa.ParsePrompt(out)
		if !s.prompt.Privileged {
			return fmt.Errorf("enable on %s was rejected", s.host)
		}
	}

	if _, err := s.SendCommand(ctx, asa.CmdPagerOff); err != nil {
		return fmt.Errorf("disable paging on %s: %w", s.host, err)
	}
	return nil
}

// Hostname returns the hostname shown in the device prompt.
func (s *Shell) Hostname() string {
	return s.prompt.Hostname
}

// SendCommand sends one command and returns its output without the echoed
// command and the trailing prompt. If the device asks a question the output
// ends with that question and the caller is expected to answer it.
func (s *Shell) SendCommand(ctx context.Context, cmd string) (string, error) {
	if err := s.write(cmd); err != nil {
		return "", err
	}
	out, err := s.readUntil(ctx, func(o string) bool {
		return isPrompt(o) || asa.AwaitingConfirmation(o)
	})
	return cleanOutput(out, cmd), err
}

// SendConfig enters configuration mode, sends each line and returns to
// privileged exec mode.
func (s *Shell) SendConfig(ctx context.Context, lines []string) (string, error) {
	var b strings.Builder
	for _, cmd := range append(append([]string{asa.CmdConfigure}, lines...), asa.CmdEnd) {
		out, err := s.SendCommand(ctx, cmd)
		if out != "" {
			b.WriteString(out)
			b.WriteString("\n")
		}
		if err != nil {
			return b.String(), fmt.Errorf("config line %q on %s: %w", cmd, s.host, err)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// Close terminates the session.
func (s *Shell) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer()
	s.closer = nil
	return err
}

func (s *Shell) write(line string) error {
	if _, err := io.WriteString(s.stdin, line+"\n"); err != nil {
		return fmt.Errorf("write to %s: %w", s.host, err)
	}
	return nil
}

// readUntil accumulates output until done reports true on everything read
// so far, the session ends, the context is cancelled or the command timeout
// expires.
func (s *Shell) readUntil(ctx context.Context, done func(string) bool) (string, error) {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	for {
		if s.pending.Len() > 0 && done(s.pending.String()) {
			return s.drain(), nil
		}
		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				return s.drain(), s.readErr
			}
			s.pending.WriteString(chunk)
		case <-ctx.Done():
			return s.drain(), ctx.Err()
		case <-timer.C:
			return s.drain(), fmt.Errorf("timed out after %v waiting for %s", s.timeout, s.host)
		}
	}
}

func (s *Shell) drain() string {
	out := s.pending.String()
	s.pending.Reset()
	return out
}

func isPrompt(output string) bool {
	_, ok := asa.ParsePrompt(output)
	return ok
}

// cleanOutput strips the echoed command and the trailing prompt.
func cleanOutput(out, cmd string) string {
	lines := strings.Split(out, "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) == cmd {
		lines = lines[1:]
	}
	if n := len(lines); n > 0 && isPrompt(lines[n-1]) {
		lines = lines[:n-1]
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}
