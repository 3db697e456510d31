package bridge

import (
	"fmt"
	"os"
	"os/exec"
)

// ServiceFlag selects background mode on the chime command line.
const ServiceFlag = "-service"

// ExecLauncher re-invokes an executable in service mode as a detached child.
type ExecLauncher struct {
	Executable string
	Args       []string
}

// NewSelfLauncher launches the running binary with -service, pointing it at
// dataDir.
func NewSelfLauncher(dataDir string) (*ExecLauncher, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	args := []string{ServiceFlag}
	if dataDir != "" {
		args = append(args, "-data-dir", dataDir)
	}
	return &ExecLauncher{Executable: exe, Args: args}, nil
}

// Launch starts the child without stdio and releases it.
func (l *ExecLauncher) Launch() error {
	cmd := exec.Command(l.Executable, l.Args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = detachedAttr()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", l.Executable, err)
	}
	return cmd.Process.Release()
}
