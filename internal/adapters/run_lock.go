package adapters

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"golang.org/x/sys/unix"
)

const runLockName = ".raur.lock"

// RunLock is an exclusive advisory lock on the work directory.
type RunLock struct {
	file *os.File
}

// AcquireRunLock fails immediately when another run holds the lock.
func AcquireRunLock(workDir string) (*RunLock, error) {
	if err := os.MkdirAll(workDir, 0o750); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create work directory").
			WithCause(err)
	}
	path := filepath.Join(workDir, runLockName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open run lock").
			WithCause(err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("another run is using %s", workDir)).
				WithCause(err)
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to acquire run lock").
			WithCause(err)
	}
	return &RunLock{file: f}, nil
}

func (l *RunLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	defer func() { l.file = nil }()
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	return l.file.Close()
}
