// Package launcher spawns external application processes on behalf of
// the desktop shell. The compositor core treats it as a black box
// that returns a process handle or a failure.
package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Process is a handle on a launched child.
type Process struct {
	log zerolog.Logger
	cmd *exec.Cmd
}

// Launch starts path with the given arguments. env entries are
// appended to the parent environment; the LOOM_DISPLAY variable is
// how children find the compositor socket.
func Launch(ctx context.Context, logger zerolog.Logger, path string, args, env []string) (*Process, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launch %v: %w", path, err)
	}

	p := Process{
		log: logger.With().Str("path", path).Int("pid", cmd.Process.Pid).Logger(),
		cmd: cmd,
	}
	p.log.Info().Msg("process launched")

	return &p, nil
}

// Pid returns the child's process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Wait blocks until the child exits.
func (p *Process) Wait() error {
	return p.cmd.Wait()
}

// Signal delivers sig to the child.
func (p *Process) Signal(sig os.Signal) error {
	return p.cmd.Process.Signal(sig)
}

// Stop asks the child to terminate and kills it if it has not exited
// within the grace period.
func (p *Process) Stop(grace time.Duration) error {
	if err := p.Signal(unix.SIGTERM); err != nil {
		return err
	}

	exited := make(chan error, 1)
	go func() { exited <- p.cmd.Wait() }()

	select {
	case err := <-exited:
		return err
	case <-time.After(grace):
		p.log.Warn().Msg("process did not exit, killing")
		if err := p.cmd.Process.Kill(); err != nil {
			return err
		}
		return <-exited
	}
}
