package induction

import (
	"math"
	"time"

	"optimetro.kochimetro.org/internal/models"
)

// Weights of each factor in the combined train score.
const (
	FitnessWeight  = 0.4
	JobCardWeight  = 0.25
	MileageWeight  = 0.2
	BrandingWeight = 0.1
	CleaningWeight = 0.05
)

// Certificate weights inside the fitness factor.
const (
	rollingStockWeight = 0.4
	signallingWeight   = 0.3
	telecomWeight      = 0.3

	fullValidityDays = 30
)

// TrainScore is the per-factor breakdown for one train.
type TrainScore struct {
	TrainID  string  `json:"trainId"`
	Fitness  float64 `json:"fitness"`
	JobCard  float64 `json:"jobCard"`
	Mileage  float64 `json:"mileage"`
	Branding float64 `json:"branding"`
	Cleaning float64 `json:"cleaning"`
	Total    float64 `json:"total"`
}

type fleetMileage struct {
	mean   float64
	stdDev float64
}

func computeFleetMileage(trains []models.Train) fleetMileage {
	if len(trains) == 0 {
		return fleetMileage{}
	}
	values := make([]float64, len(trains))
	for i, t := range trains {
		values[i] = t.OdoKm
	}
	mean, stdDev := meanAndStdDev(values)
	return fleetMileage{mean: mean, stdDev: stdDev}
}

// meanAndStdDev returns the mean and the population standard deviation.
func meanAndStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

func fitnessScore(f models.FitnessCertificates, now time.Time) float64 {
	score := 0.0
	score += certificateScore(f.RollingStockExpiry, now, rollingStockWeight)
	score += certificateScore(f.SignallingExpiry, now, signallingWeight)
	score += certificateScore(f.TelecomExpiry, now, telecomWeight)
	return score
}

func certificateScore(expiry, now time.Time, weight float64) float64 {
	if !expiry.After(now) {
		return 0
	}
	daysValid := expiry.Sub(now).Hours() / 24
	return math.Min(daysValid/fullValidityDays, 1) * weight
}

func jobCardScore(cards []models.JobCard) float64 {
	score := 1.0
	for _, jc := range cards {
		switch jc.Severity {
		case models.SeverityCritical:
			score -= 0.5
		case models.SeverityHigh:
			score -= 0.3
		case models.SeverityMedium:
			score -= 0.1
		}
	}
	return math.Max(score, 0)
}

func mileageScore(odoKm float64, fleet fleetMileage) float64 {
	if fleet.stdDev == 0 {
		return 1
	}
	deviation := math.Abs(odoKm - fleet.mean)
	return math.Max(0, 1-deviation/(2*fleet.stdDev))
}

func brandingScore(sla *models.BrandingSLA) float64 {
	if sla == nil {
		return 0.5
	}
	return math.Min(sla.Compliance(), 1)
}

// cleaningScore is the share of available slots that start off-peak in the
// plant timezone. It is the same for every train.
func cleaningScore(slots []models.CleaningSlot, loc *time.Location) float64 {
	available := 0
	offPeak := 0
	for _, cs := range slots {
		if cs.Status != models.SlotAvailable {
			continue
		}
		available++
		hour := cs.Start.In(loc).Hour()
		if hour < 6 || hour > 22 {
			offPeak++
		}
	}
	if available == 0 {
		return 0
	}
	return float64(offPeak) / float64(available)
}

// ComputeScores scores every train in snapshot order.
func (e *Engine) ComputeScores() []TrainScore {
	now := e.clock.Now()
	fleet := computeFleetMileage(e.snapshot.Trains)
	cleaning := cleaningScore(e.snapshot.CleaningSlots, e.loc)

	scores := make([]TrainScore, 0, len(e.snapshot.Trains))
	for _, train := range e.snapshot.Trains {
		s := TrainScore{
			TrainID:  train.ID,
			Fitness:  fitnessScore(train.Fitness, now),
			JobCard:  jobCardScore(e.snapshot.OpenJobCards(train.ID)),
			Mileage:  mileageScore(train.OdoKm, fleet),
			Branding: brandingScore(e.snapshot.BrandingFor(train.ID)),
			Cleaning: cleaning,
		}
		s.Total = s.Fitness*FitnessWeight +
			s.JobCard*JobCardWeight +
			s.Mileage*MileageWeight +
			s.Branding*BrandingWeight +
			s.Cleaning*CleaningWeight
		scores = append(scores, s)
	}
	return scores
}
