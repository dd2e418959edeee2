// Package journey plans single-leg metro journeys over the GTFS timetable.
package journey

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"github.com/twpayne/go-polyline"

	"optimetro.kochimetro.org/internal/models"
)

var (
	ErrMissingStations = errors.New("from and to stations are required")
	ErrSameStation     = errors.New("departure and arrival stations cannot be the same")
	ErrUnknownStation  = errors.New("invalid station in route")
	ErrNoTrain         = errors.New("no suitable train found for this route")
)

var errorMessages = map[error]string{
	ErrMissingStations: "From and to stations are required",
	ErrSameStation:     "Departure and arrival stations cannot be the same",
	ErrUnknownStation:  "Invalid station in route",
	ErrNoTrain:         "No suitable train found for this route",
}

// Message returns the rider-facing text for a planning error.
func Message(err error) string {
	if msg, ok := errorMessages[err]; ok {
		return msg
	}
	return err.Error()
}

const lineName = "Line 1"

// Feed is the slice of the GTFS manager the planner reads.
type Feed interface {
	RLock()
	RUnlock()
	GetTrips() []gtfs.ScheduledTrip
	GetStations() []models.Station
	FindStation(key string) (models.Station, bool)
	Version() uint64
}

type Request struct {
	From string `json:"from"`
	To   string `json:"to"`
	Date string `json:"date,omitempty"`
	Time string `json:"time,omitempty"`
}

type Step struct {
	Type          string `json:"type"`
	From          string `json:"from"`
	To            string `json:"to"`
	Duration      int    `json:"duration"`
	Fare          int    `json:"fare"`
	Line          string `json:"line,omitempty"`
	Platform      string `json:"platform,omitempty"`
	DepartureTime string `json:"departureTime,omitempty"`
	ArrivalTime   string `json:"arrivalTime,omitempty"`
	TrainID       string `json:"trainId,omitempty"`
	Headsign      string `json:"headsign,omitempty"`
}

type Journey struct {
	From          string `json:"from"`
	To            string `json:"to"`
	Steps         []Step `json:"steps"`
	TotalTime     int    `json:"totalTime"`
	TotalFare     int    `json:"totalFare"`
	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
	Route         string `json:"route"`
}

// run is one train's calls, keyed by station name.
type run struct {
	tripID   string
	headsign string
	calls    map[string]time.Duration
}

// network is the planner's view of one feed version.
type network struct {
	version  uint64
	order    []string
	index    map[string]int
	stations map[string]models.Station
	runs     []run
}

type Planner struct {
	feed Feed

	mu      sync.Mutex
	network *network
}

func NewPlanner(feed Feed) *Planner {
	return &Planner{feed: feed}
}

// current returns the network for the feed's current version, rebuilding it
// after a hot swap.
func (p *Planner) current() *network {
	p.feed.RLock()
	defer p.feed.RUnlock()
	return p.currentLocked()
}

// resolve returns the current network together with the station names from
// and to refer to. Stations may be given by id, code or name in any case;
// keys matching no station come back unchanged.
func (p *Planner) resolve(from, to string) (*network, string, string) {
	p.feed.RLock()
	defer p.feed.RUnlock()
	return p.currentLocked(), p.stationName(from), p.stationName(to)
}

// Caller must hold p.feed.RLock().
func (p *Planner) stationName(key string) string {
	if s, ok := p.feed.FindStation(key); ok {
		return s.Name
	}
	return key
}

// Caller must hold p.feed.RLock().
func (p *Planner) currentLocked() *network {
	version := p.feed.Version()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.network == nil || p.network.version != version {
		p.network = buildNetwork(version, p.feed.GetStations(), p.feed.GetTrips())
	}
	return p.network
}

func buildNetwork(version uint64, stations []models.Station, trips []gtfs.ScheduledTrip) *network {
	n := &network{
		version:  version,
		index:    make(map[string]int),
		stations: make(map[string]models.Station, len(stations)),
	}
	for _, s := range stations {
		n.stations[s.Name] = s
	}

	// Station order follows the longest run in its own direction of travel.
	var longest *gtfs.ScheduledTrip
	for i := range trips {
		if longest == nil || len(trips[i].StopTimes) > len(longest.StopTimes) {
			longest = &trips[i]
		}
		r := run{tripID: trips[i].ID, headsign: trips[i].Headsign, calls: make(map[string]time.Duration)}
		for _, st := range trips[i].StopTimes {
			if st.Stop == nil {
				continue
			}
			r.calls[st.Stop.Name] = st.DepartureTime
		}
		n.runs = append(n.runs, r)
	}
	if longest != nil {
		stopTimes := slices.Clone(longest.StopTimes)
		slices.SortFunc(stopTimes, func(a, b gtfs.ScheduledStopTime) int {
			return a.StopSequence - b.StopSequence
		})
		for _, st := range stopTimes {
			if st.Stop != nil {
				n.order = append(n.order, st.Stop.Name)
			}
		}
		// Order stations from the first stop in the feed, whichever way the
		// longest run travels.
		if len(n.order) > 1 && len(stations) > 0 && n.order[len(n.order)-1] == stations[0].Name {
			slices.Reverse(n.order)
		}
	}
	for i, name := range n.order {
		n.index[name] = i
	}
	return n
}

// Plan finds the train whose departure from req.From is closest to req.Time
// and that reaches req.To afterwards.
func (p *Planner) Plan(req Request) (Journey, error) {
	if req.From == "" || req.To == "" {
		return Journey{}, ErrMissingStations
	}

	var requested time.Duration
	hasTime := req.Time != ""
	if hasTime {
		t, err := time.Parse("15:04", req.Time)
		if err != nil {
			return Journey{}, fmt.Errorf("invalid time %q: %w", req.Time, err)
		}
		requested = time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
	}

	n, from, to := p.resolve(req.From, req.To)
	if from == to {
		return Journey{}, ErrSameStation
	}
	fromIndex, okFrom := n.index[from]
	toIndex, okTo := n.index[to]
	if !okFrom || !okTo {
		return Journey{}, ErrNoTrain
	}

	var best *run
	var bestGap time.Duration
	for i := range n.runs {
		r := &n.runs[i]
		dep, okDep := r.calls[from]
		arr, okArr := r.calls[to]
		if !okDep || !okArr || dep >= arr {
			continue
		}
		gap := absDuration(dep - requested)
		if best == nil || (hasTime && gap < bestGap) {
			best, bestGap = r, gap
		}
	}
	if best == nil {
		return Journey{}, ErrNoTrain
	}

	dep := best.calls[from]
	arr := best.calls[to]
	duration := int((arr - dep) / time.Minute)
	fare := Fare(fromIndex, toIndex)
	platform := "Platform 1"
	if fromIndex > toIndex {
		platform = "Platform 2"
	}

	route, err := n.encodeRoute(fromIndex, toIndex)
	if err != nil {
		return Journey{}, err
	}

	return Journey{
		From: from,
		To:   to,
		Steps: []Step{{
			Type:          "metro",
			From:          from,
			To:            to,
			Duration:      duration,
			Fare:          fare,
			Line:          lineName,
			Platform:      platform,
			DepartureTime: clockTime(dep),
			ArrivalTime:   clockTime(arr),
			TrainID:       best.tripID,
			Headsign:      best.headsign,
		}},
		TotalTime:     duration,
		TotalFare:     fare,
		DepartureTime: clockTime(dep),
		ArrivalTime:   clockTime(arr),
		Route:         route,
	}, nil
}

// encodeRoute returns the polyline through every station between the two
// indexes, inclusive, in travel order.
func (n *network) encodeRoute(from, to int) (string, error) {
	step := 1
	if from > to {
		step = -1
	}
	coords := make([][]float64, 0, int(math.Abs(float64(to-from)))+1)
	for i := from; ; i += step {
		s, ok := n.stations[n.order[i]]
		if !ok {
			return "", ErrUnknownStation
		}
		coords = append(coords, []float64{s.Lat, s.Lon})
		if i == to {
			break
		}
	}
	return string(polyline.EncodeCoords(coords)), nil
}

// Stations returns the line's station names in order.
func (p *Planner) Stations() []string {
	return slices.Clone(p.current().order)
}

// Fare is the ticket price in rupees for a trip between two station indexes.
func Fare(from, to int) int {
	hops := from - to
	if hops < 0 {
		hops = -hops
	}
	switch {
	case hops <= 5:
		return 10
	case hops <= 10:
		return 15
	case hops <= 15:
		return 20
	default:
		return 25
	}
}

func clockTime(d time.Duration) string {
	minutes := int(d / time.Minute)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
