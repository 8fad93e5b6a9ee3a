package testutil

import (
	"sync"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
)

// Classification is a single Classified event.
type Classification struct {
	Key   string
	State archivetypes.RestorationState
}

// MockProgress records progress events for assertions.
type MockProgress struct {
	mu              sync.Mutex
	Classifications []Classification
	CopiedKeys      []string
	UploadedKeys    []string
	Flushes         int
}

// Classified records a classification outcome.
func (m *MockProgress) Classified(key string, state archivetypes.RestorationState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Classifications = append(m.Classifications, Classification{Key: key, State: state})
}

// Copied records a finished copy.
func (m *MockProgress) Copied(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CopiedKeys = append(m.CopiedKeys, key)
}

// Uploaded records a finished upload.
func (m *MockProgress) Uploaded(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UploadedKeys = append(m.UploadedKeys, key)
}

// Flush records a line break.
func (m *MockProgress) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Flushes++
}

// StatesFor returns the states reported for key, in order.
func (m *MockProgress) StatesFor(key string) []archivetypes.RestorationState {
	m.mu.Lock()
	defer m.mu.Unlock()

	var states []archivetypes.RestorationState
	for _, c := range m.Classifications {
		if c.Key == key {
			states = append(states, c.State)
		}
	}
	return states
}

var _ archivetypes.ProgressReporter = (*MockProgress)(nil)
