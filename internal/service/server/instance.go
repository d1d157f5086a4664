package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-ps"
)

// errAlreadyRunning is returned when another controller drives the same relay.
var errAlreadyRunning = errors.New("another gate-server instance is already running")

// processLister lists running processes.
type processLister func() ([]ps.Process, error)

// ensureSingleInstance refuses to start when another process runs the same
// executable: two controllers would pulse one relay and fight over it.
func ensureSingleInstance(list processLister) error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	return checkSingleInstance(list, filepath.Base(executable), os.Getpid())
}

func checkSingleInstance(list processLister, name string, self int) error {
	processList, err := list()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	for _, process := range processList {
		if process.Pid() == self {
			continue
		}

		if process.Executable() != name {
			continue
		}

		return fmt.Errorf("%w (pid %d)", errAlreadyRunning, process.Pid())
	}

	return nil
}
