package daemon

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// EnvChild marks the re-executed, detached process.
const EnvChild = "AESDSOCKET_DAEMON_CHILD"

// listenerFD is the descriptor the child finds the inherited socket on
// (first entry of ExtraFiles).
const listenerFD = 3

// ErrUnsupportedListener is returned when the listener cannot be handed to a
// child process.
var ErrUnsupportedListener = errors.New("daemon: listener has no file descriptor")

// IsChild reports whether this process was started by Detach.
func IsChild() bool { return os.Getenv(EnvChild) == "1" }

// Detach re-executes the current binary in a new session with stdio on
// /dev/null and l inherited as fd 3. The caller should exit 0 once it
// returns without error; the listener stays bound throughout.
func Detach(l net.Listener, args []string) (int, error) {
	f, err := listenerFile(l)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("daemon: locate executable: %w", err)
	}
	cmd := exec.Command(exe, args...)
	cmd.Env = append(os.Environ(), EnvChild+"=1")
	cmd.ExtraFiles = []*os.File{f}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	// nil Stdin/Stdout/Stderr are connected to os.DevNull.
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("daemon: start child: %w", err)
	}
	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return pid, nil
}

// InheritedListener rebuilds the listener passed by Detach.
func InheritedListener() (net.Listener, error) {
	f := os.NewFile(listenerFD, "aesdsocket-listener")
	if f == nil {
		return nil, errors.New("daemon: no inherited listener")
	}
	defer f.Close()
	l, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("daemon: inherited listener: %w", err)
	}
	return l, nil
}

// Sanitize finishes detaching: working directory "/" and a zero umask.
func Sanitize() error {
	unix.Umask(0)
	if err := os.Chdir("/"); err != nil {
		return fmt.Errorf("daemon: chdir: %w", err)
	}
	return nil
}

func listenerFile(l net.Listener) (*os.File, error) {
	fl, ok := l.(interface{ File() (*os.File, error) })
	if !ok {
		return nil, ErrUnsupportedListener
	}
	f, err := fl.File()
	if err != nil {
		return nil, fmt.Errorf("daemon: listener file: %w", err)
	}
	return f, nil
}
