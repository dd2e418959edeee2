package gtfs

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"github.com/tidwall/rtree"

	"optimetro.kochimetro.org/internal/clock"
	"optimetro.kochimetro.org/internal/logging"
	"optimetro.kochimetro.org/internal/models"
)

// Manager manages the GTFS data and provides methods to access it
type Manager struct {
	source              string
	gtfsData            *gtfs.Static
	stations            []models.Station
	stationSpatialIndex *rtree.RTree
	shapes              map[string]*gtfs.Shape
	lastUpdated         time.Time
	version             uint64
	isHealthy           bool

	staticUpdateMutex sync.Mutex   // Protects against concurrent ForceUpdate calls
	staticMutex       sync.RWMutex // Protects the feed snapshot fields above
	config            Config
	clock             clock.Clock
	httpClient        *http.Client
	logger            *slog.Logger
	shutdownChan      chan struct{}
	wg                sync.WaitGroup
	shutdownOnce      sync.Once
}

// InitGTFSManager loads the feed from config.Source and starts the refresh
// loop for URL sources or the file watcher for local ones.
func InitGTFSManager(ctx context.Context, config Config) (*Manager, error) {
	manager := &Manager{
		config:       config,
		clock:        config.Clock,
		httpClient:   &http.Client{},
		logger:       logging.Component(slog.Default(), "gtfs_manager"),
		shutdownChan: make(chan struct{}),
	}
	if manager.clock == nil {
		manager.clock = clock.RealClock{}
	}

	snapshot, err := loadGTFSData(ctx, manager.httpClient, config.Source)
	if err != nil {
		return nil, err
	}
	manager.setSnapshot(snapshot)

	switch {
	case isURL(config.Source):
		manager.wg.Add(1)
		go manager.updateStaticGTFS()
	case config.Source != "" && config.WatchLocalFile:
		if err := manager.startFileWatcher(config.Source); err != nil {
			manager.Shutdown()
			return nil, err
		}
	}

	return manager, nil
}

// SetGtfsURL changes the source used by the next ForceUpdate.
func (manager *Manager) SetGtfsURL(source string) {
	manager.staticUpdateMutex.Lock()
	defer manager.staticUpdateMutex.Unlock()
	manager.config.Source = source
}

// Shutdown gracefully shuts down the manager and its background goroutines
func (manager *Manager) Shutdown() {
	manager.shutdownOnce.Do(func() {
		close(manager.shutdownChan)
		manager.wg.Wait()
		manager.httpClient.CloseIdleConnections()
	})
}

func (manager *Manager) RLock() {
	manager.staticMutex.RLock()
}

func (manager *Manager) RUnlock() {
	manager.staticMutex.RUnlock()
}

// IMPORTANT: Caller must hold manager.RLock() before calling this method.
func (manager *Manager) GetTrips() []gtfs.ScheduledTrip {
	return manager.gtfsData.Trips
}

// IMPORTANT: Caller must hold manager.RLock() before calling this method.
func (manager *Manager) GetStations() []models.Station {
	return manager.stations
}

// FindStation matches a station by id, code or case-insensitive name.
// IMPORTANT: Caller must hold manager.RLock() before calling this method.
func (manager *Manager) FindStation(key string) (models.Station, bool) {
	for _, s := range manager.stations {
		if s.ID == key || s.Code == key || strings.EqualFold(s.Name, key) {
			return s, true
		}
	}
	return models.Station{}, false
}

// Shape returns the points of a shape in sequence order.
// IMPORTANT: Caller must hold manager.RLock() before calling this method.
func (manager *Manager) Shape(shapeID string) (*gtfs.Shape, bool) {
	shape, ok := manager.shapes[shapeID]
	return shape, ok
}

// Version increases each time a new feed is swapped in.
// IMPORTANT: Caller must hold manager.RLock() before calling this method.
func (manager *Manager) Version() uint64 {
	return manager.version
}

type Statistics struct {
	Source      string    `json:"source"`
	LastUpdated time.Time `json:"lastUpdated"`
	Stations    int       `json:"stations"`
	Routes      int       `json:"routes"`
	Trips       int       `json:"trips"`
	Shapes      int       `json:"shapes"`
}

// IMPORTANT: Caller must hold manager.RLock() before calling this method.
func (manager *Manager) Statistics() Statistics {
	return Statistics{
		Source:      sourceName(manager.source),
		LastUpdated: manager.lastUpdated,
		Stations:    len(manager.stations),
		Routes:      len(manager.gtfsData.Routes),
		Trips:       len(manager.gtfsData.Trips),
		Shapes:      len(manager.shapes),
	}
}

// IsHealthy returns true if the GTFS data is loaded and valid.
func (manager *Manager) IsHealthy() bool {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	return manager.isHealthy
}

// MarkUnhealthy flags the feed as stale. The next successful update clears it.
func (manager *Manager) MarkUnhealthy() {
	manager.staticMutex.Lock()
	defer manager.staticMutex.Unlock()
	manager.isHealthy = false
}
