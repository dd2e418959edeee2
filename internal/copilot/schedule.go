package copilot

import (
	"encoding/json"
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Schedule trip states written by the copilot.
const (
	TripWithdrawn = "Withdrawn"
	TripShortTurn = "Short Turn"
	TripGapFill   = "Gap Fill"
)

// ScheduleTrip is one row of the operator's working timetable. Fields the
// copilot does not know about are kept in Extra and written back unchanged,
// as are known fields the operator sent with an empty value ("", false, null
// or []) until the copilot sets them.
type ScheduleTrip struct {
	Date           string   `json:"date,omitempty"`
	TrainNumber    string   `json:"trainNumber,omitempty"`
	TrainName      string   `json:"trainName,omitempty"`
	Origin         string   `json:"origin,omitempty"`
	Destination    string   `json:"destination,omitempty"`
	Departure      string   `json:"departure,omitempty"`
	Arrival        string   `json:"arrival,omitempty"`
	Status         string   `json:"status,omitempty"`
	AIModified     bool     `json:"aiModified,omitempty"`
	AIAction       string   `json:"aiAction,omitempty"`
	WithdrawReason string   `json:"withdrawReason,omitempty"`
	AddReason      string   `json:"addReason,omitempty"`
	SkipStations   []string `json:"skipStations,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// scheduleTripFields is ScheduleTrip without its JSON methods.
type scheduleTripFields ScheduleTrip

var knownTripKeys = []string{
	"date", "trainNumber", "trainName", "origin", "destination", "departure",
	"arrival", "status", "aiModified", "aiAction", "withdrawReason", "addReason",
	"skipStations",
}

func (t *ScheduleTrip) UnmarshalJSON(data []byte) error {
	var fields scheduleTripFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range knownTripKeys {
		if v, ok := raw[key]; ok && !isEmptyJSON(v) {
			delete(raw, key)
		}
	}
	if len(raw) > 0 {
		fields.Extra = raw
	}
	*t = ScheduleTrip(fields)
	return nil
}

func (t ScheduleTrip) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(scheduleTripFields(t))
	if err != nil {
		return nil, err
	}
	if len(t.Extra) == 0 {
		return known, nil
	}
	merged := make(map[string]json.RawMessage, len(t.Extra)+len(knownTripKeys))
	maps.Copy(merged, t.Extra)
	var knownFields map[string]json.RawMessage
	if err := json.Unmarshal(known, &knownFields); err != nil {
		return nil, err
	}
	maps.Copy(merged, knownFields)
	return json.Marshal(merged)
}

func isEmptyJSON(v json.RawMessage) bool {
	var decoded interface{}
	if err := json.Unmarshal(v, &decoded); err != nil {
		return false
	}
	switch d := decoded.(type) {
	case nil:
		return true
	case string:
		return d == ""
	case bool:
		return !d
	case []interface{}:
		return len(d) == 0
	}
	return false
}

// Clone returns a deep copy.
func (t ScheduleTrip) Clone() ScheduleTrip {
	c := t
	c.SkipStations = slices.Clone(t.SkipStations)
	if t.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(t.Extra))
		for k, v := range t.Extra {
			c.Extra[k] = slices.Clone(v)
		}
	}
	return c
}

var digitsOnly = regexp.MustCompile(`^\d+$`)

// MatchesTrain reports whether the trip runs the train named by id. KMRC ids
// and bare numbers match on the number alone.
func (t ScheduleTrip) MatchesTrain(id string) bool {
	if t.TrainNumber == id || t.TrainName == id {
		return true
	}
	if strings.Contains(id, "KMRC") {
		number := strings.TrimSpace(strings.Replace(id, "KMRC", "", 1))
		return strings.Contains(t.TrainNumber, number) || strings.Contains(t.TrainName, number)
	}
	if digitsOnly.MatchString(id) {
		return strings.Contains(t.TrainNumber, id) || strings.Contains(t.TrainName, id)
	}
	return false
}

// scheduleChange is one mutation to apply to a schedule.
type scheduleChange struct {
	action  IntentType
	trainID string
	station string
	reason  string
}

func findScheduledTrip(schedule []ScheduleTrip, trainID string) (ScheduleTrip, bool) {
	for _, trip := range schedule {
		if trip.MatchesTrain(trainID) {
			return trip, true
		}
	}
	return ScheduleTrip{}, false
}

// modifySchedule returns a new schedule with the change applied. The input
// slice and its trips are left untouched.
func modifySchedule(schedule []ScheduleTrip, change scheduleChange, now time.Time) []ScheduleTrip {
	if schedule == nil {
		return []ScheduleTrip{}
	}

	modified := make([]ScheduleTrip, 0, len(schedule)+1)
	for _, trip := range schedule {
		trip = trip.Clone()
		switch change.action {
		case IntentWithdraw:
			if trip.MatchesTrain(change.trainID) {
				trip.Status = TripWithdrawn
				trip.AIModified = true
				trip.WithdrawReason = change.reason
			}
		case IntentShortTurn:
			if trip.MatchesTrain(change.trainID) {
				trip.Destination = change.station
				trip.Status = TripShortTurn
			}
		case IntentSkipStop:
			trip.SkipStations = append(trip.SkipStations, change.station)
		}
		modified = append(modified, trip)
	}

	if change.action == IntentGapFill {
		modified = append(modified, ScheduleTrip{
			Date:        now.Format(time.DateOnly),
			TrainNumber: change.trainID,
			TrainName:   change.trainID,
			Origin:      "Depot",
			Destination: "Service",
			Departure:   now.Format("15:04"),
			Arrival:     now.Add(30 * time.Minute).Format("15:04"),
			Status:      TripGapFill,
			AIModified:  true,
			AIAction:    "added",
			AddReason:   change.reason,
		})
	}
	return modified
}
