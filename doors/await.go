package doors

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Await opens the door at path, waiting up to timeout for a server to
// install it first. It covers the usual startup race where the client
// comes up before the server has attached its door.
//
// Await watches the parent directory for the path appearing and also polls,
// since attaching a door to an already-existing jamb does not necessarily
// produce a filesystem event. A path that appears but has no door attached
// yet keeps being waited on; expiry reports os.ErrDeadlineExceeded.
func Await(path string, timeout time.Duration) (*Client, error) {
	c, err := Open(path)
	if err == nil {
		return c, nil
	}
	if errors.Is(err, ErrUnsupported) {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("await %s: %w", path, err)
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return nil, fmt.Errorf("await %s: watch %s: %w", path, dir, err)
	}

	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case ev := <-w.Events:
			if ev.Name != path {
				continue
			}
		case <-tick.C:
		case err := <-w.Errors:
			return nil, fmt.Errorf("await %s: %w", path, err)
		case <-deadline.C:
			return nil, fmt.Errorf("await %s: %w", path, os.ErrDeadlineExceeded)
		}

		c, err := Open(path)
		if err == nil {
			return c, nil
		}
		// Not there yet, or the jamb exists but fattach has not
		// happened; keep waiting on anything else.
		if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, ErrNotADoor) {
			return nil, err
		}
	}
}
