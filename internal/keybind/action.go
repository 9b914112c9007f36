package keybind

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
)

// ErrEmptyCommand is returned when a Spawn action has no program.
var ErrEmptyCommand = errors.New("empty command")

// Action is run when its binding is triggered.
type Action interface {
	Execute() error
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func() error

// Execute calls f.
func (f ActionFunc) Execute() error {
	return f()
}

// Spawn starts a program in its own session and does not wait for it.
type Spawn struct {
	Argv []string
}

// Execute starts the program. The child is reaped in the background.
func (s Spawn) Execute() error {
	if len(s.Argv) == 0 || s.Argv[0] == "" {
		return ErrEmptyCommand
	}
	cmd := exec.Command(s.Argv[0], s.Argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", s.Argv[0], err)
	}
	go cmd.Wait() //nolint:errcheck
	return nil
}

func (s Spawn) String() string {
	return strings.Join(s.Argv, " ")
}
