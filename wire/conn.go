package wire

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/loomwm/loom/internal/set"
	"golang.org/x/sys/unix"
)

func runtimeDir() string {
	dir, ok := os.LookupEnv("XDG_RUNTIME_DIR")
	if ok {
		return dir
	}
	return fmt.Sprintf("/var/run/user/%v", os.Getuid())
}

// SocketPath determines the path of the compositor's rendezvous socket
// from the $LOOM_DISPLAY environment variable. It does not attempt to
// determine whether the path corresponds to an actual socket.
func SocketPath() string {
	v, ok := os.LookupEnv("LOOM_DISPLAY")
	if !ok {
		v = "loom-0"
	}
	if filepath.IsAbs(v) {
		return v
	}

	return filepath.Join(runtimeDir(), v)
}

// NewSocketPath generates a path in the runtime directory that no
// other compositor instance is named after.
func NewSocketPath() (string, error) {
	dir := runtimeDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	names := make(set.Set[int], len(entries))
	for _, ent := range entries {
		after, ok := strings.CutPrefix(ent.Name(), "loom-")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(after, 10, 0)
		if err != nil {
			continue
		}
		names.Add(int(n))
	}

	var num int
	for names.Has(num) {
		num++
	}

	return filepath.Join(dir, fmt.Sprintf("loom-%v", num)), nil
}

// Listen binds the rendezvous socket at path. Exactly one listener may
// hold a path at a time: if a live listener is already bound there,
// Listen fails with ErrAddrInUse. A stale socket file left behind by a
// dead process is removed and the path is taken over.
func Listen(path string) (*net.UnixListener, error) {
	lis, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err == nil {
		return lis, nil
	}
	if !errors.Is(err, unix.EADDRINUSE) {
		return nil, err
	}

	c, derr := net.Dial("unix", path)
	if derr == nil {
		c.Close()
		return nil, fmt.Errorf("%w: %v", ErrAddrInUse, path)
	}
	if !errors.Is(derr, unix.ECONNREFUSED) && !errors.Is(derr, unix.ENOENT) {
		return nil, fmt.Errorf("%w: %v", ErrAddrInUse, path)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	return net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
}

// Dial opens a connection to the compositor socket based on the
// current environment.
func Dial() (*net.UnixConn, error) {
	return DialPath(SocketPath())
}

// DialPath opens a connection to the compositor socket at path.
func DialPath(path string) (*net.UnixConn, error) {
	c, err := net.Dial("unix", path)
	if err != nil {
		return nil, err
	}
	return c.(*net.UnixConn), nil
}
