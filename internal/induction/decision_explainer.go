package induction

import (
	"fmt"
	"math"
	"strings"

	"optimetro.kochimetro.org/internal/models"
)

// DecisionRequest asks for the reasoning behind an externally made induction
// decision.
type DecisionRequest struct {
	TrainID           string           `json:"train_id"`
	InductionDecision string           `json:"induction_decision"`
	StablingBay       string           `json:"stabling_bay,omitempty"`
	Conflicts         []map[string]any `json:"conflicts,omitempty"`
	PredictedDemand   *float64         `json:"predicted_demand,omitempty"`
}

// Validate returns field errors keyed by JSON field name.
func (r DecisionRequest) Validate() map[string][]string {
	fieldErrors := make(map[string][]string)
	if strings.TrimSpace(r.TrainID) == "" {
		fieldErrors["train_id"] = []string{"train_id is required"}
	}
	if strings.TrimSpace(r.InductionDecision) == "" {
		fieldErrors["induction_decision"] = []string{"induction_decision is required"}
	}
	if len(fieldErrors) == 0 {
		return nil
	}
	return fieldErrors
}

// ExplainDecision scores demand, conflicts and bay choice for a decision made
// outside the engine.
func ExplainDecision(req DecisionRequest) models.AIExplanation {
	trainID := strings.TrimSpace(req.TrainID)
	decision := strings.TrimSpace(req.InductionDecision)
	bay := strings.TrimSpace(req.StablingBay)

	demand := 0.0
	if req.PredictedDemand != nil && !math.IsNaN(*req.PredictedDemand) && !math.IsInf(*req.PredictedDemand, 0) {
		demand = *req.PredictedDemand
	}
	conflicts := len(req.Conflicts)

	demandImpact := models.ImpactNeutral
	if demand > 70 {
		demandImpact = models.ImpactPositive
	}

	constraints := make([]models.ConstraintStatus, 0, conflicts)
	for i, c := range req.Conflicts {
		name, _ := c["type"].(string)
		if name == "" {
			name = fmt.Sprintf("conflict_%d", i+1)
		}
		constraints = append(constraints, models.ConstraintStatus{
			Constraint: name,
			Satisfied:  false,
			Severity:   models.SeverityHard,
		})
	}

	conflictFactor := models.ExplanationFactor{
		Factor:      "Operational Conflicts",
		Weight:      0.35,
		Impact:      models.ImpactNeutral,
		Description: "No blocking conflicts identified.",
	}
	if conflicts > 0 {
		conflictFactor.Impact = models.ImpactNegative
		conflictFactor.Description = fmt.Sprintf("%d conflicts require resolution (routing/schedule/maintenance).", conflicts)
	}

	bayFactor := models.ExplanationFactor{
		Factor:      "Stabling Bay Alignment",
		Weight:      0.25,
		Impact:      models.ImpactNeutral,
		Description: "No stabling bay preference provided.",
	}
	if bay != "" {
		bayFactor.Impact = models.ImpactPositive
		bayFactor.Description = fmt.Sprintf("Preferred stabling bay %s meets turnaround and positioning needs.", bay)
	}

	confidence := 0.8 - float64(conflicts)*0.05
	if demandImpact == models.ImpactPositive {
		confidence += 0.05
	}

	adjust := models.AlternativeAction{
		Action: "adjust_schedule",
		Score:  math.Max(0, 0.7-float64(conflicts)*0.1),
		Reason: "Schedule can be optimized for demand peaks.",
	}
	if conflicts > 0 {
		adjust.Reason = "Resolve timing/route conflicts before induction."
	}
	alternateBay := models.AlternativeAction{
		Action: "choose_alternate_bay",
		Score:  0.6,
		Reason: "Selecting a specific bay may reduce deadheading.",
	}
	if bay != "" {
		alternateBay.Score = 0.4
		alternateBay.Reason = "Current bay is acceptable; alternates may reduce shunting."
	}

	return models.AIExplanation{
		TrainID:  trainID,
		Decision: decision,
		Reasoning: models.Reasoning{
			Factors: []models.ExplanationFactor{
				{
					Factor:      "Predicted Demand",
					Weight:      0.4,
					Impact:      demandImpact,
					Description: fmt.Sprintf("Forecast demand is %s. Higher demand favors assignment to high-capacity service.", formatNumber(demand)),
				},
				conflictFactor,
				bayFactor,
			},
			Constraints: constraints,
			Tradeoffs: []models.Tradeoff{{
				Aspect:      "Service Capacity",
				Current:     clamp(demand, 0, 100),
				Alternative: clamp(100-demand, 0, 100),
				Explanation: "Balancing forecast demand coverage with operational feasibility.",
			}},
		},
		Confidence:   clamp(confidence, 0.5, 0.95),
		Alternatives: []models.AlternativeAction{adjust, alternateBay},
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
