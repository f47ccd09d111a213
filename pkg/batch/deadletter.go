package batch

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/homepulse/homepulse/pkg/models"
	"github.com/homepulse/homepulse/pkg/store"
)

// DeadLetter appends exhausted batches to a line-protocol file. Each
// batch is preceded by a `# batch <id> <rfc3339>` comment so operators
// can locate a failure window and replay the lines with a plain write
// request.
type DeadLetter struct {
	path string

	mu      sync.Mutex
	written int64
}

// NewDeadLetter creates a dead-letter log at path. The file is created
// lazily on first write.
func NewDeadLetter(path string) *DeadLetter {
	return &DeadLetter{path: path}
}

// Append records a failed batch. Returns the number of points written.
func (d *DeadLetter) Append(b models.WriteBatch) (int, error) {
	body, err := store.EncodePoints(b.Points)
	if err != nil {
		return 0, fmt.Errorf("encoding dead-letter batch %s: %w", b.ID, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.OpenFile(d.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("opening dead-letter file: %w", err)
	}
	defer f.Close()

	header := fmt.Sprintf("# batch %s %s\n", b.ID, time.Now().UTC().Format(time.RFC3339))
	if _, err := f.WriteString(header); err != nil {
		return 0, fmt.Errorf("writing dead-letter header: %w", err)
	}
	if _, err := f.Write(body); err != nil {
		return 0, fmt.Errorf("writing dead-letter batch: %w", err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("syncing dead-letter file: %w", err)
	}

	d.written += int64(len(b.Points))
	return len(b.Points), nil
}

// Written returns the total number of dead-lettered points.
func (d *DeadLetter) Written() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.written
}
