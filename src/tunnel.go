package src

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Tunnel is a supervised ssh child process forwarding a local port to the
// inference server on a remote host.
type Tunnel struct {
	LocalPort int
	cmd       *exec.Cmd
	log       *zap.SugaredLogger

	// done closes once the child has been reaped; exitErr is valid to
	// read only after that.
	done    chan struct{}
	exitErr error
}

// OpenTunnel starts `ssh -N -L <local>:localhost:<remote> target` and
// waits for the local end to start accepting connections. Target accepts
// the usual user@host form, optionally with :port for the ssh port.
func OpenTunnel(ctx context.Context, target string, remotePort int, log *zap.SugaredLogger) (*Tunnel, error) {
	localPort, err := freePort()
	if err != nil {
		return nil, err
	}

	host := target
	args := []string{
		"-N",
		"-o", "BatchMode=yes",
		"-o", "ExitOnForwardFailure=yes",
		"-L", fmt.Sprintf("%d:localhost:%d", localPort, remotePort),
	}
	if h, p, ok := strings.Cut(target, ":"); ok {
		host = h
		args = append(args, "-p", p)
	}
	args = append(args, host)

	t, err := superviseTunnel(exec.CommandContext(ctx, "ssh", args...), localPort, log)
	if err != nil {
		return nil, fmt.Errorf("start ssh: %w", err)
	}
	log.Infow("ssh tunnel starting", "target", host, "local_port", localPort, "remote_port", remotePort)

	if err := t.waitReady(ctx, 15*time.Second); err != nil {
		_ = t.Close()
		return nil, err
	}
	return t, nil
}

// superviseTunnel starts the child and a reaper goroutine so an early
// exit is observable before Close is ever called.
func superviseTunnel(cmd *exec.Cmd, localPort int, log *zap.SugaredLogger) (*Tunnel, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	t := &Tunnel{
		LocalPort: localPort,
		cmd:       cmd,
		log:       log,
		done:      make(chan struct{}),
	}
	go func() {
		t.exitErr = cmd.Wait()
		close(t.done)
	}()
	return t, nil
}

// waitReady polls the local end until something is listening there. An
// ssh child that dies first (bad host, refused auth under BatchMode)
// fails the wait immediately instead of riding out the full limit.
func (t *Tunnel) waitReady(ctx context.Context, limit time.Duration) error {
	addr := fmt.Sprintf("localhost:%d", t.LocalPort)
	deadline := time.After(limit)
	for {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		select {
		case <-t.done:
			return fmt.Errorf("ssh exited before the tunnel came up: %v", t.exitErr)
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("tunnel on %s not ready within %s", addr, limit)
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// Close terminates the ssh child and waits for the reaper to collect it.
func (t *Tunnel) Close() error {
	if t.cmd.Process != nil {
		if err := t.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
	}
	<-t.done
	t.log.Debugw("ssh tunnel closed", "local_port", t.LocalPort)
	return nil
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
