package copilot

import (
	"fmt"

	"optimetro.kochimetro.org/internal/models"
)

const (
	defaultShortTurnStation = "intermediate station"
	defaultTerminalStation  = "designated station"
	defaultGapFillReason    = "service disruption"
)

var (
	altCancelService = Alternative{
		Option:      "Cancel service",
		Description: "Cancel the affected trip and adjust headways",
		Tradeoffs:   []string{"Reduced service frequency", "Potential passenger inconvenience"},
	}
	altDelayWithdrawal = Alternative{
		Option:      "Delay withdrawal",
		Description: "Wait for next scheduled maintenance window",
		Tradeoffs:   []string{"Operational risk continues", "May affect other services"},
	}
	altFindReplacement = Alternative{
		Option:      "Find replacement",
		Description: "Look for standby train to maintain service",
		Tradeoffs:   []string{"May require operational adjustments", "Better passenger experience"},
	}
	altContinueToDestination = Alternative{
		Option:      "Continue to destination",
		Description: "Maintain full service to original destination",
		Tradeoffs:   []string{"Operational risk continues", "Potential for further delays"},
	}
	altCancelTrip = Alternative{
		Option:      "Cancel service",
		Description: "Cancel the entire trip",
		Tradeoffs:   []string{"No service provided", "Passengers need alternative transport"},
	}
	altAdjustHeadways = Alternative{
		Option:      "Adjust headways",
		Description: "Increase headways on remaining services",
		Tradeoffs:   []string{"Longer wait times", "Reduced service frequency"},
	}
	altCancelAffectedTrips = Alternative{
		Option:      "Cancel affected trips",
		Description: "Cancel trips to maintain headways",
		Tradeoffs:   []string{"Service reduction", "Passenger inconvenience"},
	}
	altContinueNormalService = Alternative{
		Option:      "Continue normal service",
		Description: "Maintain normal stopping pattern",
		Tradeoffs:   []string{"Operational risk continues", "Potential for further delays"},
	}
	altTerminateEarly = Alternative{
		Option:      "Terminate service early",
		Description: "Terminate service before the affected station",
		Tradeoffs:   []string{"Reduced service coverage", "Passenger inconvenience"},
	}
	altClarify = Alternative{
		Option:      "Clarify request",
		Description: "Provide more specific details about the operational requirement",
		Tradeoffs:   []string{"Requires additional information", "May delay response"},
	}
)

var gapFillMetrics = Metrics{
	Impact:         "Service gap filled with standby train",
	Feasibility:    0.9,
	EstimatedDelay: 3,
}

func reasonOr(reason, fallback string) string {
	if reason == "" {
		return fallback
	}
	return reason
}

func withdrawalChange(trainID, reason string, constraints []string) models.TrainDecision {
	if constraints == nil {
		constraints = []string{}
	}
	return models.TrainDecision{
		TrainID:     trainID,
		Action:      models.ActionStandby,
		Score:       0,
		Reason:      "Withdrawn due to: " + reasonOr(reason, DefaultReason),
		Constraints: constraints,
		Confidence:  0.9,
	}
}

func replacementChange(replacementID, withdrawnID string) models.TrainDecision {
	return models.TrainDecision{
		TrainID:     replacementID,
		Action:      models.ActionRevenue,
		Score:       0.8,
		Reason:      "Replacement for withdrawn train " + withdrawnID,
		Constraints: []string{},
		Confidence:  0.8,
	}
}

func shortTurnChange(trainID, station, reason string) models.TrainDecision {
	return models.TrainDecision{
		TrainID:     trainID,
		Action:      models.ActionRevenue,
		Score:       0.7,
		Reason:      fmt.Sprintf("Short turn at %s due to: %s", reasonOr(station, defaultShortTurnStation), reasonOr(reason, DefaultReason)),
		Constraints: []string{"Modified service pattern"},
		Confidence:  0.8,
	}
}

func shortTurnMetrics(station string) Metrics {
	return Metrics{
		Impact:         "Service will terminate early at " + reasonOr(station, defaultTerminalStation),
		Feasibility:    0.8,
		EstimatedDelay: 2,
	}
}

func shortTurnReasoning(trainID, station string) string {
	return fmt.Sprintf("Short turning %s at %s. Passengers will need to transfer to next service.", trainID, reasonOr(station, defaultShortTurnStation))
}

func gapFillChange(trainID, reason string) models.TrainDecision {
	return models.TrainDecision{
		TrainID:     trainID,
		Action:      models.ActionRevenue,
		Score:       0.8,
		Reason:      "Gap fill service due to: " + reasonOr(reason, defaultGapFillReason),
		Constraints: []string{},
		Confidence:  0.8,
	}
}

func gapFillReasoning(trainID string) string {
	return fmt.Sprintf("Injecting standby train %s to fill service gap. Headway will be restored.", trainID)
}

func skipStopChange(station, reason string) models.TrainDecision {
	return models.TrainDecision{
		TrainID:     "multiple",
		Action:      models.ActionRevenue,
		Score:       0.6,
		Reason:      fmt.Sprintf("Skip stop at %s due to: %s", station, reasonOr(reason, DefaultReason)),
		Constraints: []string{"Modified stopping pattern"},
		Confidence:  0.7,
	}
}

// skipStopMetrics reports a one minute saving as a negative delay.
func skipStopMetrics(station string) Metrics {
	return Metrics{
		Impact:         fmt.Sprintf("Trains will skip %s station", station),
		Feasibility:    0.8,
		EstimatedDelay: -1,
	}
}

func skipStopReasoning(station string) string {
	return fmt.Sprintf("Skipping %s station. Passengers at this station will need to use alternative services.", station)
}
