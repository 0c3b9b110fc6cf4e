// Package opener hands files to the host's default application.
package opener

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pkg/browser"
)

var ErrFileMissing = errors.New("file does not exist")

// System opens files with the platform handler (open, xdg-open or start).
type System struct {
	openFile func(path string) error
}

func NewSystem() *System {
	// Keep the launched program's chatter out of our stdout logs.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return &System{openFile: browser.OpenFile}
}

// Open checks that path exists and launches the default viewer for it.
func (s *System) Open(path string) error {
	if path == "" {
		return ErrFileMissing
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileMissing, path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := s.openFile(path); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	return nil
}
