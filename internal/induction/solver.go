package induction

import (
	"fmt"
	"sort"
	"time"

	"optimetro.kochimetro.org/internal/models"
)

// Decision reasons.
const (
	ReasonRevenue       = "High fitness score, no critical job cards, good mileage balance"
	ReasonMaintenance   = "Low fitness score or critical job cards require maintenance"
	ReasonStandby       = "Available for standby service"
	ReasonStandbyFilled = "No standby slots available, assigned to maintenance"
)

// Decision constraints.
const (
	ConstraintFitnessExpiry = "Fitness certificate expires during service window"
	ConstraintCriticalCards = "Open critical job cards"
	ConstraintBrandingRisk  = "Branding SLA at risk"
)

const (
	revenueThreshold     = 0.8
	maintenanceThreshold = 0.3
	brandingRiskLevel    = 0.8
	movesPerBayAssigned  = 2

	turnoutHour   = 5
	turnoutMinute = 30
)

// Solution is the output of the assignment pass.
type Solution struct {
	Status         string                 `json:"status"`
	ObjectiveValue float64                `json:"objectiveValue"`
	Decisions      []models.TrainDecision `json:"decisions"`
	Conflicts      []models.Conflict      `json:"conflicts"`
	Metrics        models.PlanMetrics     `json:"metrics"`
}

// Solve assigns each scored train to revenue, standby or IBL, highest score
// first. Ties keep snapshot order.
func (e *Engine) Solve(scores []TrainScore) Solution {
	now := e.clock.Now()

	sorted := make([]TrainScore, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Total > sorted[j].Total
	})

	bay := e.optimalBay()
	turnoutBase := e.turnoutBase(now)

	revenueCount, standbyCount := 0, 0
	objective := 0.0
	decisions := make([]models.TrainDecision, 0, len(sorted))

	for _, s := range sorted {
		train := e.snapshot.FindTrain(s.TrainID)
		if train == nil {
			continue
		}
		objective += s.Total

		var action models.Action
		var reason string
		switch {
		case s.Total > revenueThreshold && revenueCount < e.config.Constraints.MaxRun:
			action, reason = models.ActionRevenue, ReasonRevenue
			revenueCount++
		case s.Total < maintenanceThreshold || e.snapshot.HasCriticalJobCard(train.ID):
			action, reason = models.ActionIBL, ReasonMaintenance
		case standbyCount < e.config.Constraints.MaxStandby:
			action, reason = models.ActionStandby, ReasonStandby
			standbyCount++
		default:
			action, reason = models.ActionIBL, ReasonStandbyFilled
		}

		decisions = append(decisions, models.TrainDecision{
			TrainID:          train.ID,
			Action:           action,
			Score:            s.Total,
			Reason:           reason,
			Constraints:      e.decisionConstraints(*train, now),
			BayAssignment:    bay,
			TripAssignments:  e.tripAssignments(train.ID, action),
			EstimatedTurnout: turnoutFor(turnoutBase, action),
			Confidence:       min(s.Total, 1),
		})
	}

	return Solution{
		Status:         "optimal",
		ObjectiveValue: objective,
		Decisions:      decisions,
		Conflicts:      conflictsFor(decisions),
		Metrics:        e.planMetrics(decisions),
	}
}

func (e *Engine) decisionConstraints(train models.Train, now time.Time) []string {
	constraints := []string{}
	if !train.Fitness.AllValid(now) {
		constraints = append(constraints, ConstraintFitnessExpiry)
	}
	if e.snapshot.HasCriticalJobCard(train.ID) {
		constraints = append(constraints, ConstraintCriticalCards)
	}
	if sla := e.snapshot.BrandingFor(train.ID); sla != nil && sla.Compliance() < brandingRiskLevel {
		constraints = append(constraints, ConstraintBrandingRisk)
	}
	return constraints
}

// optimalBay returns the non-full bay with the lowest shunt cost. The first
// bay wins ties.
func (e *Engine) optimalBay() string {
	var best *models.StablingBay
	for i := range e.snapshot.StablingBays {
		bay := &e.snapshot.StablingBays[i]
		if !bay.HasCapacity() {
			continue
		}
		if best == nil || bay.ShuntCost < best.ShuntCost {
			best = bay
		}
	}
	if best == nil {
		return ""
	}
	return best.ID
}

// tripAssignments lists trip blocks already pinned to a train entering revenue.
func (e *Engine) tripAssignments(trainID string, action models.Action) []string {
	if action != models.ActionRevenue {
		return nil
	}
	var trips []string
	for _, tb := range e.snapshot.TripBlocks {
		if tb.TrainID == trainID {
			trips = append(trips, tb.TripID)
		}
	}
	return trips
}

func (e *Engine) turnoutBase(now time.Time) time.Time {
	local := now.In(e.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), turnoutHour, turnoutMinute, 0, 0, e.loc)
}

func turnoutFor(base time.Time, action models.Action) string {
	var prep time.Duration
	switch action {
	case models.ActionRevenue:
		prep = 15 * time.Minute
	case models.ActionStandby:
		prep = 30 * time.Minute
	default:
		prep = 60 * time.Minute
	}
	return base.Add(prep).Format(time.RFC3339)
}

func conflictsFor(decisions []models.TrainDecision) []models.Conflict {
	conflicts := []models.Conflict{}
	for _, d := range decisions {
		for _, c := range d.Constraints {
			var conflictType, severity string
			switch c {
			case ConstraintFitnessExpiry:
				conflictType, severity = models.ConflictFitness, models.SeverityCritical
			case ConstraintCriticalCards:
				conflictType, severity = models.ConflictJobCard, models.SeverityCritical
			case ConstraintBrandingRisk:
				conflictType, severity = models.ConflictBranding, models.SeverityMedium
			default:
				continue
			}
			conflicts = append(conflicts, models.Conflict{
				ID:             fmt.Sprintf("%s-%s", d.TrainID, conflictType),
				Type:           conflictType,
				Severity:       severity,
				Description:    c,
				AffectedTrains: []string{d.TrainID},
				Status:         "open",
			})
		}
	}
	return conflicts
}

func (e *Engine) planMetrics(decisions []models.TrainDecision) models.PlanMetrics {
	metrics := models.PlanMetrics{BrandingCompliance: 1}

	var revenueMileage []float64
	brandedTotal, branded := 0.0, 0
	for _, d := range decisions {
		if d.BayAssignment != "" {
			metrics.TotalShunting += movesPerBayAssigned
		}
		metrics.ConstraintViolations += len(d.Constraints)

		if d.Action != models.ActionRevenue {
			continue
		}
		if train := e.snapshot.FindTrain(d.TrainID); train != nil {
			revenueMileage = append(revenueMileage, train.OdoKm)
		}
		if sla := e.snapshot.BrandingFor(d.TrainID); sla != nil {
			brandedTotal += sla.Compliance()
			branded++
		}
	}

	_, metrics.MileageVariance = meanAndStdDev(revenueMileage)
	if branded > 0 {
		metrics.BrandingCompliance = brandedTotal / float64(branded)
	}
	return metrics
}
