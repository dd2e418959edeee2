package induction

import (
	"fmt"
	"math"

	"optimetro.kochimetro.org/internal/models"
)

// Explain builds the factor breakdown behind each decision.
func (e *Engine) Explain(decisions []models.TrainDecision) []models.AIExplanation {
	fleet := computeFleetMileage(e.snapshot.Trains)
	available := len(e.snapshot.AvailableCleaningSlots())

	explanations := make([]models.AIExplanation, 0, len(decisions))
	for _, d := range decisions {
		train := e.snapshot.FindTrain(d.TrainID)
		if train == nil {
			continue
		}
		explanations = append(explanations, models.AIExplanation{
			TrainID:  d.TrainID,
			Decision: string(d.Action),
			Reasoning: models.Reasoning{
				Factors: []models.ExplanationFactor{
					e.fitnessFactor(*train),
					e.jobCardFactor(*train),
					mileageFactor(*train, fleet),
					brandingFactor(e.snapshot.BrandingFor(train.ID)),
					cleaningFactor(available),
				},
				Constraints: e.constraintStatus(*train),
				Tradeoffs:   tradeoffsFor(d.Action),
			},
			Confidence:   d.Confidence,
			Alternatives: alternativesFor(d),
		})
	}
	return explanations
}

func (e *Engine) fitnessFactor(train models.Train) models.ExplanationFactor {
	now := e.clock.Now()
	impact := models.ImpactNegative
	if train.Fitness.AllValid(now) {
		impact = models.ImpactPositive
	}

	days := train.Fitness.DaysToEarliestExpiry(now)
	var description string
	switch {
	case days > 7:
		description = fmt.Sprintf("All fitness certificates valid for %d days", int(math.Floor(days)))
	case days > 0:
		description = fmt.Sprintf("Fitness certificates expire in %d days - requires attention", int(math.Floor(days)))
	default:
		description = "Fitness certificates expired - cannot enter service"
	}

	return models.ExplanationFactor{
		Factor:      "Fitness Certificates",
		Weight:      FitnessWeight,
		Impact:      impact,
		Description: description,
	}
}

func (e *Engine) jobCardFactor(train models.Train) models.ExplanationFactor {
	critical := e.snapshot.CriticalJobCardCount(train.ID)
	factor := models.ExplanationFactor{
		Factor:      "Job Card Status",
		Weight:      JobCardWeight,
		Impact:      models.ImpactPositive,
		Description: "No open job cards - ready for service",
	}
	if critical > 0 {
		factor.Impact = models.ImpactNegative
		factor.Description = fmt.Sprintf("%d critical job cards open - requires maintenance", critical)
	}
	return factor
}

func mileageFactor(train models.Train, fleet fleetMileage) models.ExplanationFactor {
	deviation := train.OdoKm - fleet.mean
	threshold := fleet.mean * 0.1

	impact := models.ImpactNeutral
	switch {
	case math.Abs(deviation) < threshold:
		impact = models.ImpactPositive
	case math.Abs(deviation) > threshold*2:
		impact = models.ImpactNegative
	}

	var description string
	switch {
	case math.Abs(deviation) < fleet.mean*0.05:
		description = fmt.Sprintf("Mileage (%s km) well balanced with fleet average (%d km)", formatNumber(train.OdoKm), int(math.Floor(fleet.mean)))
	case deviation > 0:
		description = fmt.Sprintf("High mileage (%s km) - %d km above average", formatNumber(train.OdoKm), int(math.Floor(deviation)))
	default:
		description = fmt.Sprintf("Low mileage (%s km) - %d km below average", formatNumber(train.OdoKm), int(math.Floor(math.Abs(deviation))))
	}

	return models.ExplanationFactor{
		Factor:      "Mileage Balance",
		Weight:      MileageWeight,
		Impact:      impact,
		Description: description,
	}
}

func brandingFactor(sla *models.BrandingSLA) models.ExplanationFactor {
	factor := models.ExplanationFactor{
		Factor:      "Branding SLA",
		Weight:      BrandingWeight,
		Impact:      models.ImpactNeutral,
		Description: "No branding requirements",
	}
	if sla == nil {
		return factor
	}

	compliance := sla.Compliance()
	switch {
	case compliance >= 1:
		factor.Impact = models.ImpactPositive
	case compliance < brandingRiskLevel:
		factor.Impact = models.ImpactNegative
	}

	if compliance >= 1 {
		factor.Description = fmt.Sprintf("Branding SLA met (%s/%s hours)", formatNumber(sla.HoursDelivered), formatNumber(sla.MinHoursWeek))
	} else {
		shortfall := sla.MinHoursWeek - sla.HoursDelivered
		factor.Description = fmt.Sprintf("Branding SLA at risk - %d hours shortfall", int(math.Floor(shortfall)))
	}
	return factor
}

func cleaningFactor(available int) models.ExplanationFactor {
	factor := models.ExplanationFactor{
		Factor:      "Cleaning Availability",
		Weight:      CleaningWeight,
		Impact:      models.ImpactPositive,
		Description: fmt.Sprintf("%d cleaning slots available", available),
	}
	if available == 0 {
		factor.Impact = models.ImpactNegative
		factor.Description = "No cleaning slots available"
	}
	return factor
}

func (e *Engine) constraintStatus(train models.Train) []models.ConstraintStatus {
	return []models.ConstraintStatus{
		{
			Constraint: "Fitness certificates valid",
			Satisfied:  train.Fitness.AllValid(e.clock.Now()),
			Severity:   models.SeverityHard,
		},
		{
			Constraint: "No critical job cards",
			Satisfied:  !e.snapshot.HasCriticalJobCard(train.ID),
			Severity:   models.SeverityHard,
		},
		{
			Constraint: "Bay capacity available",
			Satisfied:  e.snapshot.BayCapacityAvailable(),
			Severity:   models.SeveritySoft,
		},
	}
}

func tradeoffsFor(action models.Action) []models.Tradeoff {
	switch action {
	case models.ActionRevenue:
		return []models.Tradeoff{{
			Aspect:      "Service availability",
			Current:     1,
			Alternative: 0.5,
			Explanation: "Revenue service provides maximum passenger capacity",
		}}
	case models.ActionStandby:
		return []models.Tradeoff{{
			Aspect:      "Operational flexibility",
			Current:     0.8,
			Alternative: 0.3,
			Explanation: "Standby provides flexibility for disruptions",
		}}
	}
	return []models.Tradeoff{}
}

func alternativesFor(d models.TrainDecision) []models.AlternativeAction {
	alternatives := []models.AlternativeAction{}
	if d.Action != models.ActionRevenue {
		alternatives = append(alternatives, models.AlternativeAction{
			Action: string(models.ActionRevenue),
			Score:  d.Score * 0.8,
			Reason: "Could enter revenue service but with lower confidence",
		})
	}
	if d.Action != models.ActionStandby {
		alternatives = append(alternatives, models.AlternativeAction{
			Action: string(models.ActionStandby),
			Score:  d.Score * 0.6,
			Reason: "Could be held on standby for flexibility",
		})
	}
	return alternatives
}

// formatNumber prints whole numbers without a decimal part.
func formatNumber(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
