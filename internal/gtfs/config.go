package gtfs

import (
	"strings"
	"time"

	"optimetro.kochimetro.org/internal/appconf"
	"optimetro.kochimetro.org/internal/clock"
)

const DefaultRefreshInterval = 24 * time.Hour

type Config struct {
	// Source is a local file path or an http(s) URL. Empty selects the
	// embedded Kochi Metro feed.
	Source string

	// RefreshInterval applies to URL sources. Zero means DefaultRefreshInterval.
	RefreshInterval time.Duration

	// WatchLocalFile reloads a local feed whenever the file changes.
	WatchLocalFile bool

	Env appconf.Environment

	// Clock stamps each loaded feed. Nil means the system clock.
	Clock clock.Clock
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func (c Config) refreshInterval() time.Duration {
	if c.RefreshInterval <= 0 {
		return DefaultRefreshInterval
	}
	return c.RefreshInterval
}
