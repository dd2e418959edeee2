package gtfs

import _ "embed"

// kochiMetroFeed is the static Line 1 timetable used when no feed is configured.
//
//go:embed feed/kochi-metro.zip
var kochiMetroFeed []byte

// EmbeddedFeed returns a copy of the built-in feed archive.
func EmbeddedFeed() []byte {
	return append([]byte(nil), kochiMetroFeed...)
}
