// Package progress prints per-object progress markers to a terminal.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
)

// Markers printed for each event.
const (
	MarkerReady      = "📦"
	MarkerRequesting = "📼"
	MarkerRestoring  = "📤"
	MarkerRestored   = "✅"
	MarkerCopied     = "📥"
	MarkerUploaded   = "⏫"
)

// Legend explains the classification markers.
const Legend = MarkerReady + " ready to copy    " +
	MarkerRequesting + " requesting restore    " +
	MarkerRestoring + " restoring    " +
	MarkerRestored + " restored"

// Console writes one marker per event on a single line. It is safe for
// concurrent use.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	pending bool
}

// NewConsole creates a reporter writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Marker returns the marker printed for state.
func Marker(state archivetypes.RestorationState) string {
	switch state {
	case archivetypes.StateRequested:
		return MarkerRequesting
	case archivetypes.StateInProgress:
		return MarkerRestoring
	case archivetypes.StateReady:
		return MarkerRestored
	default:
		return MarkerReady
	}
}

// Classified prints the marker of state.
func (c *Console) Classified(_ string, state archivetypes.RestorationState) {
	c.write(Marker(state))
}

// Copied prints the copied marker.
func (c *Console) Copied(string) {
	c.write(MarkerCopied)
}

// Uploaded prints the uploaded marker.
func (c *Console) Uploaded(string) {
	c.write(MarkerUploaded)
}

// Flush terminates the current marker line, if any.
func (c *Console) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending {
		_, _ = fmt.Fprintln(c.w)
		c.pending = false
	}
}

func (c *Console) write(marker string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = io.WriteString(c.w, marker)
	c.pending = true
}

var _ archivetypes.ProgressReporter = (*Console)(nil)
