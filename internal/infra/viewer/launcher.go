package viewer

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
)

// ErrScanDirNotFound indicates the requested scan directory does not exist.
var ErrScanDirNotFound = errors.New("scan directory not found")

// Launcher spawns the external scan viewer as a detached process. The
// process is not joined or supervised; launch is fire-and-forget.
type Launcher struct {
	command   string
	scansRoot string
}

func NewLauncher(command, scansRoot string) *Launcher {
	return &Launcher{command: command, scansRoot: scansRoot}
}

// Open resolves the directory identifier and starts the viewer on it.
func (l *Launcher) Open(dir string) error {
	path := dir
	if l.scansRoot != "" && !filepath.IsAbs(dir) {
		path = filepath.Join(l.scansRoot, filepath.Clean("/"+dir))
	}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrScanDirNotFound, dir)
	}

	cmd := exec.Command(l.command, path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch viewer: %w", err)
	}
	log.Printf("viewer launched: command=%s dir=%s pid=%d", l.command, path, cmd.Process.Pid)

	// Detach; the viewer outlives the request and is never waited on.
	if err := cmd.Process.Release(); err != nil {
		log.Printf("viewer detach warning: %v", err)
	}
	return nil
}
