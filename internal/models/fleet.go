package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FitnessCertificates holds the expiry of the three certificates a trainset
// needs before it may enter service.
type FitnessCertificates struct {
	RollingStockExpiry time.Time `json:"rollingStockExpiry" yaml:"rollingStockExpiry"`
	SignallingExpiry   time.Time `json:"signallingExpiry" yaml:"signallingExpiry"`
	TelecomExpiry      time.Time `json:"telecomExpiry" yaml:"telecomExpiry"`
}

// AllValid reports whether every certificate expires strictly after now.
func (f FitnessCertificates) AllValid(now time.Time) bool {
	return f.RollingStockExpiry.After(now) && f.SignallingExpiry.After(now) && f.TelecomExpiry.After(now)
}

// DaysToEarliestExpiry is negative once any certificate has lapsed.
func (f FitnessCertificates) DaysToEarliestExpiry(now time.Time) float64 {
	earliest := f.RollingStockExpiry
	if f.SignallingExpiry.Before(earliest) {
		earliest = f.SignallingExpiry
	}
	if f.TelecomExpiry.Before(earliest) {
		earliest = f.TelecomExpiry
	}
	return earliest.Sub(now).Hours() / 24
}

type Train struct {
	ID            string              `json:"id" yaml:"id"`
	TrainNumber   string              `json:"trainNumber" yaml:"trainNumber"`
	Status        string              `json:"status" yaml:"status"`
	Fitness       FitnessCertificates `json:"fitness" yaml:"fitness"`
	OdoKm         float64             `json:"odoKm" yaml:"odoKm"`
	BrandingTag   string              `json:"brandingTag,omitempty" yaml:"brandingTag,omitempty"`
	Consist       string              `json:"consist,omitempty" yaml:"consist,omitempty"`
	LastServiceAt time.Time           `json:"lastServiceAt,omitempty" yaml:"lastServiceAt,omitempty"`
}

type JobCard struct {
	ID          string     `json:"id" yaml:"id"`
	TrainID     string     `json:"trainId" yaml:"trainId"`
	Title       string     `json:"title,omitempty" yaml:"title,omitempty"`
	Status      string     `json:"status" yaml:"status"`
	Severity    string     `json:"severity" yaml:"severity"`
	System      string     `json:"system,omitempty" yaml:"system,omitempty"`
	OpenedAt    time.Time  `json:"openedAt,omitempty" yaml:"openedAt,omitempty"`
	MustClearBy *time.Time `json:"mustClearBy,omitempty" yaml:"mustClearBy,omitempty"`
}

func (j JobCard) IsOpen() bool {
	return j.Status == JobCardOpen
}

type BrandingSLA struct {
	CampaignID     string  `json:"campaignId" yaml:"campaignId"`
	TrainID        string  `json:"trainId" yaml:"trainId"`
	MinHoursWeek   float64 `json:"minHoursWeek" yaml:"minHoursWeek"`
	HoursDelivered float64 `json:"hoursDelivered" yaml:"hoursDelivered"`
	Shortfall      float64 `json:"shortfall" yaml:"shortfall"`
	Penalty        float64 `json:"penalty" yaml:"penalty"`
}

// Compliance is delivered hours over the weekly minimum. A contract with no
// minimum is always compliant.
func (b BrandingSLA) Compliance() float64 {
	if b.MinHoursWeek <= 0 {
		return 1
	}
	return b.HoursDelivered / b.MinHoursWeek
}

type CleaningSlot struct {
	ID       string    `json:"id" yaml:"id"`
	DepotID  string    `json:"depotId" yaml:"depotId"`
	Bay      string    `json:"bay" yaml:"bay"`
	Start    time.Time `json:"start" yaml:"start"`
	End      time.Time `json:"end" yaml:"end"`
	Manpower int       `json:"manpower" yaml:"manpower"`
	Duration int       `json:"duration" yaml:"duration"`
	Status   string    `json:"status" yaml:"status"`
}

type StablingBay struct {
	ID        string   `json:"id" yaml:"id"`
	BayNumber string   `json:"bayNumber" yaml:"bayNumber"`
	Capacity  int      `json:"capacity" yaml:"capacity"`
	Occupied  int      `json:"occupied" yaml:"occupied"`
	TrainIDs  []string `json:"trainIds,omitempty" yaml:"trainIds,omitempty"`
	DepotID   string   `json:"depotId" yaml:"depotId"`
	Adjacency []string `json:"adjacency,omitempty" yaml:"adjacency,omitempty"`
	ShuntCost float64  `json:"shuntCost" yaml:"shuntCost"`
}

func (b StablingBay) HasCapacity() bool {
	return b.Occupied < b.Capacity
}

type TripBlock struct {
	TripID     string    `json:"tripId" yaml:"tripId"`
	Line       string    `json:"line" yaml:"line"`
	Origin     string    `json:"origin" yaml:"origin"`
	Dest       string    `json:"dest" yaml:"dest"`
	DepPlanned time.Time `json:"depPlanned" yaml:"depPlanned"`
	ArrPlanned time.Time `json:"arrPlanned" yaml:"arrPlanned"`
	Headway    int       `json:"headway" yaml:"headway"`
	TrainID    string    `json:"trainId,omitempty" yaml:"trainId,omitempty"`
	Status     string    `json:"status" yaml:"status"`
}

// FleetSnapshot is everything the induction engine and the copilot read about
// the depot at one point in time.
type FleetSnapshot struct {
	Trains        []Train        `json:"trains" yaml:"trains"`
	JobCards      []JobCard      `json:"jobCards" yaml:"jobCards"`
	BrandingSLAs  []BrandingSLA  `json:"brandingSLAs" yaml:"brandingSLAs"`
	CleaningSlots []CleaningSlot `json:"cleaningSlots" yaml:"cleaningSlots"`
	StablingBays  []StablingBay  `json:"stablingBays" yaml:"stablingBays"`
	TripBlocks    []TripBlock    `json:"tripBlocks" yaml:"tripBlocks"`
}

func (s *FleetSnapshot) FindTrain(id string) *Train {
	for i := range s.Trains {
		if s.Trains[i].ID == id {
			return &s.Trains[i]
		}
	}
	return nil
}

func (s *FleetSnapshot) OpenJobCards(trainID string) []JobCard {
	var cards []JobCard
	for _, jc := range s.JobCards {
		if jc.TrainID == trainID && jc.IsOpen() {
			cards = append(cards, jc)
		}
	}
	return cards
}

func (s *FleetSnapshot) CriticalJobCardCount(trainID string) int {
	count := 0
	for _, jc := range s.OpenJobCards(trainID) {
		if jc.Severity == SeverityCritical {
			count++
		}
	}
	return count
}

func (s *FleetSnapshot) HasCriticalJobCard(trainID string) bool {
	return s.CriticalJobCardCount(trainID) > 0
}

// BrandingFor returns the first SLA attached to the train, if any.
func (s *FleetSnapshot) BrandingFor(trainID string) *BrandingSLA {
	for i := range s.BrandingSLAs {
		if s.BrandingSLAs[i].TrainID == trainID {
			return &s.BrandingSLAs[i]
		}
	}
	return nil
}

func (s *FleetSnapshot) AvailableCleaningSlots() []CleaningSlot {
	var slots []CleaningSlot
	for _, cs := range s.CleaningSlots {
		if cs.Status == SlotAvailable {
			slots = append(slots, cs)
		}
	}
	return slots
}

// BayCapacityAvailable reports whether the depot as a whole has a free berth.
func (s *FleetSnapshot) BayCapacityAvailable() bool {
	capacity, occupied := 0, 0
	for _, bay := range s.StablingBays {
		capacity += bay.Capacity
		occupied += bay.Occupied
	}
	return occupied < capacity
}

// ReadyForService reports whether the train holds valid certificates and has
// no open critical job card.
func (s *FleetSnapshot) ReadyForService(train Train, now time.Time) bool {
	return train.Fitness.AllValid(now) && !s.HasCriticalJobCard(train.ID)
}

// LoadFleetSnapshot reads a snapshot from a YAML (or JSON) file.
func LoadFleetSnapshot(path string) (*FleetSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fleet snapshot %s: %w", path, err)
	}
	var snapshot FleetSnapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse fleet snapshot %s: %w", path, err)
	}
	return &snapshot, nil
}
