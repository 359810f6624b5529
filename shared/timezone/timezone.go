// Package timezone holds the application clock. Timestamps are produced in the configured
// IANA location, UTC until Setup is called.
package timezone

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	mu       sync.RWMutex
	location = time.UTC
	clock    = time.Now
)

// Setup loads the named location. An empty or unknown name keeps UTC.
func Setup(name string) {
	if name == "" {
		return
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Error().Err(err).Str("timezone", name).Msg("Unknown timezone, keeping UTC")

		return
	}

	mu.Lock()
	location = loc
	mu.Unlock()

	log.Info().Str("timezone", loc.String()).Msg("Application timezone set")
}

// SetClock replaces the time source and returns a func restoring the previous one.
func SetClock(now func() time.Time) (restore func()) {
	mu.Lock()
	previous := clock
	clock = now
	mu.Unlock()

	return func() {
		mu.Lock()
		clock = previous
		mu.Unlock()
	}
}

func Location() *time.Location {
	mu.RLock()
	defer mu.RUnlock()

	return location
}

// Now returns the current time in the application timezone.
func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()

	return clock().In(location)
}

// Format renders t in the application timezone.
func Format(t time.Time, layout string) string {
	return t.In(Location()).Format(layout)
}
