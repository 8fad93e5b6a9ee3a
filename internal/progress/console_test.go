package progress

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
)

func TestConsole_Markers(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Classified("a", archivetypes.StateNotApplicable)
	c.Classified("b", archivetypes.StateRequested)
	c.Classified("c", archivetypes.StateInProgress)
	c.Classified("d", archivetypes.StateReady)
	c.Flush()
	c.Copied("a")
	c.Copied("d")
	c.Flush()

	assert.Equal(t, "📦📼📤✅\n📥📥\n", buf.String())
}

func TestConsole_FlushWithoutOutput(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Flush()
	c.Uploaded("a")
	c.Flush()
	c.Flush()

	assert.Equal(t, MarkerUploaded+"\n", buf.String())
}

func TestConsole_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Copied("k")
		}()
	}
	wg.Wait()
	c.Flush()

	assert.Equal(t, strings.Repeat(MarkerCopied, 50)+"\n", buf.String())
}

func TestLegend(t *testing.T) {
	for _, marker := range []string{MarkerReady, MarkerRequesting, MarkerRestoring, MarkerRestored} {
		assert.Contains(t, Legend, marker)
	}
}

func TestMarkers_Distinct(t *testing.T) {
	markers := []string{MarkerReady, MarkerRequesting, MarkerRestoring, MarkerRestored, MarkerCopied, MarkerUploaded}

	seen := make(map[string]bool, len(markers))
	for _, marker := range markers {
		assert.False(t, seen[marker], "marker %q is used twice", marker)
		seen[marker] = true
	}
}
