package copilot

import (
	"context"
	"fmt"
	"strings"

	"optimetro.kochimetro.org/internal/models"
)

var replacementKeywords = []string{"replace", "substitute", "with replacement"}

// ProcessWithPlan answers a command against the operator's current plan and
// schedule and returns the edited schedule alongside the proposal.
func (c *Copilot) ProcessWithPlan(ctx context.Context, req Request) Response {
	intent := ParseIntent(req.Prompt)
	rc := req.Context
	if rc == nil {
		rc = &RequestContext{}
	}

	var resp Response
	switch intent.Type {
	case IntentWithdraw:
		resp = c.withdrawWithPlan(intent, rc)
	case IntentShortTurn:
		resp = c.shortTurnWithPlan(intent, rc)
	case IntentGapFill, IntentInjectStandby:
		resp = c.gapFillWithPlan(intent, rc)
	case IntentSkipStop:
		resp = c.skipStopWithPlan(intent, rc)
	default:
		resp = c.generic()
	}
	resp.Intent = intent.Type

	c.log(ctx, "copilot_plan_request", intent, resp)
	return resp
}

func standbyEntries(plan []PlanEntry) []PlanEntry {
	var standby []PlanEntry
	for _, entry := range plan {
		if entry.IsStandby() {
			standby = append(standby, entry)
		}
	}
	return standby
}

func (c *Copilot) withdrawWithPlan(intent Intent, rc *RequestContext) Response {
	if len(intent.Entities.Trains) == 0 {
		return c.errorResponse("No train specified for withdrawal")
	}
	trainID := intent.Entities.Trains[0]
	if _, ok := findScheduledTrip(rc.CurrentSchedule, trainID); !ok {
		return c.errorResponse(fmt.Sprintf("Train %s not found in current schedule", trainID))
	}

	reason := reasonOr(intent.Entities.Reason, DefaultReason)
	wantsReplacement := containsAny(strings.ToLower(intent.Entities.Reason), replacementKeywords)

	var standby []PlanEntry
	if wantsReplacement {
		standby = standbyEntries(rc.CurrentPlan)
	}

	now := c.clock.Now().In(c.loc)
	modified := modifySchedule(rc.CurrentSchedule, scheduleChange{
		action:  IntentWithdraw,
		trainID: trainID,
		reason:  reason,
	}, now)

	var changes []models.TrainDecision
	var impact, reasoning string
	delay := 0

	switch {
	case wantsReplacement && len(standby) > 0:
		replacementID := standby[0].ID()
		changes = []models.TrainDecision{
			withdrawalChange(trainID, reason, nil),
			replacementChange(replacementID, trainID),
		}
		impact = "Service maintained with standby replacement"
		reasoning = fmt.Sprintf("Withdrawing %s and replacing with standby train %s. Service continuity maintained.", trainID, replacementID)
		delay = 5
	case wantsReplacement:
		changes = []models.TrainDecision{withdrawalChange(trainID, reason, []string{"No standby trains available"})}
		impact = "Service cancelled - no replacement available"
		reasoning = fmt.Sprintf("Withdrawing %s. No standby trains available for replacement, so service will be cancelled.", trainID)
	default:
		changes = []models.TrainDecision{withdrawalChange(trainID, reason, nil)}
		impact = "Service cancelled - train withdrawn"
		reasoning = fmt.Sprintf("Withdrawing %s from service. Affected trips will be cancelled and headways adjusted.", trainID)
	}

	alternatives := []Alternative{altFindReplacement}
	if wantsReplacement {
		alternatives = []Alternative{altCancelService}
	}

	return Response{
		RequestID: c.requestID(),
		Preview: Preview{
			Changes: changes,
			Metrics: Metrics{
				Impact:         impact,
				Feasibility:    0.9,
				EstimatedDelay: delay,
			},
			Reasoning: reasoning,
		},
		Alternatives:     alternatives,
		Confidence:       0.9,
		RequiresApproval: true,
		ModifiedSchedule: modified,
	}
}

func (c *Copilot) shortTurnWithPlan(intent Intent, rc *RequestContext) Response {
	if len(intent.Entities.Trains) == 0 {
		return c.errorResponse("No train specified for short turn")
	}
	trainID := intent.Entities.Trains[0]
	if _, ok := findScheduledTrip(rc.CurrentSchedule, trainID); !ok {
		return c.errorResponse(fmt.Sprintf("Train %s not found in current schedule", trainID))
	}

	station := firstOr(intent.Entities.Stations, "")
	modified := modifySchedule(rc.CurrentSchedule, scheduleChange{
		action:  IntentShortTurn,
		trainID: trainID,
		station: reasonOr(station, defaultShortTurnStation),
		reason:  reasonOr(intent.Entities.Reason, DefaultReason),
	}, c.clock.Now().In(c.loc))

	return Response{
		RequestID: c.requestID(),
		Preview: Preview{
			Changes:   []models.TrainDecision{shortTurnChange(trainID, station, intent.Entities.Reason)},
			Metrics:   shortTurnMetrics(station),
			Reasoning: shortTurnReasoning(trainID, station),
		},
		Alternatives:     []Alternative{altContinueToDestination},
		Confidence:       0.8,
		RequiresApproval: true,
		ModifiedSchedule: modified,
	}
}

func (c *Copilot) gapFillWithPlan(intent Intent, rc *RequestContext) Response {
	standby := standbyEntries(rc.CurrentPlan)
	if len(standby) == 0 {
		return c.errorResponse("No standby trains available for gap filling")
	}
	selectedID := standby[0].ID()

	modified := modifySchedule(rc.CurrentSchedule, scheduleChange{
		action:  IntentGapFill,
		trainID: selectedID,
		reason:  reasonOr(intent.Entities.Reason, defaultGapFillReason),
	}, c.clock.Now().In(c.loc))

	return Response{
		RequestID: c.requestID(),
		Preview: Preview{
			Changes:   []models.TrainDecision{gapFillChange(selectedID, intent.Entities.Reason)},
			Metrics:   gapFillMetrics,
			Reasoning: gapFillReasoning(selectedID),
		},
		Alternatives:     []Alternative{altAdjustHeadways},
		Confidence:       0.9,
		RequiresApproval: true,
		ModifiedSchedule: modified,
	}
}

func (c *Copilot) skipStopWithPlan(intent Intent, rc *RequestContext) Response {
	if len(intent.Entities.Stations) == 0 {
		return c.errorResponse("No station specified for skip stop")
	}
	station := intent.Entities.Stations[0]

	modified := modifySchedule(rc.CurrentSchedule, scheduleChange{
		action:  IntentSkipStop,
		station: station,
		reason:  reasonOr(intent.Entities.Reason, DefaultReason),
	}, c.clock.Now().In(c.loc))

	return Response{
		RequestID: c.requestID(),
		Preview: Preview{
			Changes:   []models.TrainDecision{skipStopChange(station, intent.Entities.Reason)},
			Metrics:   skipStopMetrics(station),
			Reasoning: skipStopReasoning(station),
		},
		Alternatives:     []Alternative{altContinueNormalService},
		Confidence:       0.7,
		RequiresApproval: true,
		ModifiedSchedule: modified,
	}
}
