package gtfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"github.com/tidwall/rtree"

	"optimetro.kochimetro.org/internal/logging"
	"optimetro.kochimetro.org/internal/models"
)

const (
	downloadTimeout = 30 * time.Second
	maxFeedSize     = 64 << 20
)

// feedSnapshot is everything derived from one parse of the feed. It is
// replaced as a whole on every update.
type feedSnapshot struct {
	source       string
	static       *gtfs.Static
	stations     []models.Station
	stationIndex *rtree.RTree
	shapes       map[string]*gtfs.Shape
}

func readFeed(ctx context.Context, client *http.Client, source string) ([]byte, error) {
	switch {
	case source == "":
		return EmbeddedFeed(), nil
	case isURL(source):
		return downloadFeed(ctx, client, source)
	default:
		b, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("error reading local GTFS file: %w", err)
		}
		return b, nil
	}
}

func downloadFeed(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GTFS request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading GTFS data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error downloading GTFS data: unexpected status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("error reading GTFS response: %w", err)
	}
	return b, nil
}

func loadGTFSData(ctx context.Context, client *http.Client, source string) (*feedSnapshot, error) {
	b, err := readFeed(ctx, client, source)
	if err != nil {
		return nil, err
	}

	static, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}
	if len(static.Stops) == 0 {
		return nil, fmt.Errorf("GTFS feed %q has no stops", sourceName(source))
	}

	stations := buildStations(static.Stops)
	shapes := make(map[string]*gtfs.Shape, len(static.Shapes))
	for i := range static.Shapes {
		shapes[static.Shapes[i].ID] = &static.Shapes[i]
	}

	return &feedSnapshot{
		source:       source,
		static:       static,
		stations:     stations,
		stationIndex: buildStationSpatialIndex(stations),
		shapes:       shapes,
	}, nil
}

// buildStations keeps the stops that carry coordinates, in feed order.
func buildStations(stops []gtfs.Stop) []models.Station {
	stations := make([]models.Station, 0, len(stops))
	for _, s := range stops {
		if s.Latitude == nil || s.Longitude == nil {
			continue
		}
		stations = append(stations, models.Station{
			ID:   s.Id,
			Code: s.Code,
			Name: s.Name,
			Lat:  *s.Latitude,
			Lon:  *s.Longitude,
		})
	}
	return stations
}

// ForceUpdate reloads the feed from the configured source and swaps it in.
// Readers holding RLock finish against the old data. On failure the current
// data stays in place.
func (manager *Manager) ForceUpdate(ctx context.Context) error {
	manager.staticUpdateMutex.Lock()
	defer manager.staticUpdateMutex.Unlock()

	source := manager.config.Source
	logger := manager.logger.With(slog.String("source", sourceName(source)))

	snapshot, err := loadGTFSData(ctx, manager.httpClient, source)
	if err != nil {
		logging.LogError(logger, "failed to update GTFS data", err)
		return err
	}

	manager.staticMutex.Lock()
	manager.setSnapshot(snapshot)
	manager.staticMutex.Unlock()

	logging.LogOperation(logger, "gtfs_static_data_updated",
		slog.Int("stations", len(snapshot.stations)),
		slog.Int("trips", len(snapshot.static.Trips)))
	return nil
}

// Caller must hold staticMutex for writing, or own the manager exclusively.
func (manager *Manager) setSnapshot(snapshot *feedSnapshot) {
	manager.source = snapshot.source
	manager.gtfsData = snapshot.static
	manager.stations = snapshot.stations
	manager.stationSpatialIndex = snapshot.stationIndex
	manager.shapes = snapshot.shapes
	manager.lastUpdated = manager.clock.Now()
	manager.version++
	manager.isHealthy = true
}

func (manager *Manager) updateStaticGTFS() {
	defer manager.wg.Done()

	ticker := time.NewTicker(manager.config.refreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-manager.shutdownChan:
			return
		case <-ticker.C:
			manager.reload(2 * downloadTimeout)
		}
	}
}

// reload runs a background update. The old feed keeps serving after a
// failure, but the manager reports unhealthy until an update succeeds.
func (manager *Manager) reload(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := manager.ForceUpdate(ctx); err != nil {
		manager.MarkUnhealthy()
	}
}

func sourceName(source string) string {
	if source == "" {
		return "embedded"
	}
	return source
}
