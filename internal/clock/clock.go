package clock

import (
	"os"
	"strings"
	"sync"
	"time"
)

// Clock abstracts the current time so engines and handlers can be tested
// against a fixed instant.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system time.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// MockClock returns a settable instant. Safe for concurrent use.
type MockClock struct {
	mu  sync.RWMutex
	now time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (c *MockClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Set moves the clock to t.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// EnvironmentClock reads a fake time from an environment variable or, failing
// that, from a file. It falls back to the system time when neither holds a
// parseable value.
//
// Accepted formats are RFC3339 and "2006-01-02 15:04:05" (interpreted in loc).
type EnvironmentClock struct {
	envVar   string
	filePath string
	loc      *time.Location
}

func NewEnvironmentClock(envVar, filePath string, loc *time.Location) *EnvironmentClock {
	if loc == nil {
		loc = time.Local
	}
	return &EnvironmentClock{envVar: envVar, filePath: filePath, loc: loc}
}

func (c *EnvironmentClock) Now() time.Time {
	if c.envVar != "" {
		if t, ok := c.parse(os.Getenv(c.envVar)); ok {
			return t
		}
	}
	if c.filePath != "" {
		if data, err := os.ReadFile(c.filePath); err == nil {
			if t, ok := c.parse(string(data)); ok {
				return t
			}
		}
	}
	return time.Now()
}

func (c *EnvironmentClock) parse(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", value, c.loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}
