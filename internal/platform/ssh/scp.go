package ssh

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Upload copies size bytes from src to remotePath (for example
// "disk0:/asa962-smp-k8.bin") with the SCP sink protocol. The device must
// have its SCP server enabled.
func (c *Client) Upload(ctx context.Context, src io.Reader, size int64, remotePath string) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create SCP session on %s: %w", c.config.Host, err)
	}
	defer func() { _ = session.Close() }()

	stdin, err := session.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open SCP stdin on %s: %w", c.config.Host, err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open SCP stdout on %s: %w", c.config.Host, err)
	}
	if err := session.Start("scp -t " + remotePath); err != nil {
		return fmt.Errorf("failed to start SCP on %s: %w", c.config.Host, err)
	}

	done := make(chan error, 1)
	go func() {
		err := sendFile(stdin, stdout, src, size, baseName(remotePath))
		_ = stdin.Close()
		done <- err
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Close()
		return fmt.Errorf("upload to %s cancelled: %w", c.config.Host, ctx.Err())
	}
	if err != nil {
		return fmt.Errorf("upload to %s:%s: %w", c.config.Host, remotePath, err)
	}

	if err := session.Wait(); err != nil {
		var missing *ssh.ExitMissingError
		if !errors.As(err, &missing) {
			return fmt.Errorf("SCP on %s exited: %w", c.config.Host, err)
		}
	}
	return nil
}

// sendFile speaks the sink side of SCP: wait for the ready ack, announce the
// file, stream the bytes and a terminating zero, wait for the final ack.
func sendFile(w io.Writer, r io.Reader, src io.Reader, size int64, name string) error {
	acks := bufio.NewReader(r)

	if err := readAck(acks); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "C0644 %d %s\n", size, name); err != nil {
		return err
	}
	if err := readAck(acks); err != nil {
		return err
	}

	n, err := io.CopyN(w, src, size)
	if err != nil {
		return fmt.Errorf("copied %d of %d bytes: %w", n, size, err)
	}
	if _, err := w.Write([]byte{0}); err != nil {
		return err
	}
	return readAck(acks)
}

func readAck(r *bufio.Reader) error {
	b, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("reading scp ack: %w", err)
	}
	switch b {
	case 0:
		return nil
	case 1, 2:
		msg, _ := r.ReadString('\n')
		return fmt.Errorf("scp: %s", strings.TrimSpace(msg))
	default:
		return fmt.Errorf("scp: unexpected ack byte %#x", b)
	}
}

func baseName(remotePath string) string {
	if i := strings.LastIndexAny(remotePath, "/:"); i >= 0 {
		return remotePath[i+1:]
	}
	return remotePath
}
