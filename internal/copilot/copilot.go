// Package copilot turns operator commands such as "withdraw KMRC 007 due to
// brake fault" into proposed fleet changes and schedule edits.
package copilot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"optimetro.kochimetro.org/internal/clock"
	"optimetro.kochimetro.org/internal/logging"
	"optimetro.kochimetro.org/internal/models"
)

// PlanEntry is one train of the induction plan the operator is working from.
// Both camelCase and snake_case payloads are accepted.
type PlanEntry struct {
	TrainID    string `json:"trainId,omitempty"`
	TrainIDAlt string `json:"train_id,omitempty"`
	Action     string `json:"action,omitempty"`
	Decision   string `json:"decision,omitempty"`
}

func (p PlanEntry) ID() string {
	if p.TrainID != "" {
		return p.TrainID
	}
	return p.TrainIDAlt
}

func (p PlanEntry) IsStandby() bool {
	return p.Action == string(models.ActionStandby) || p.Decision == string(models.ActionStandby)
}

type RequestContext struct {
	AffectedTrains   []string           `json:"affectedTrains,omitempty"`
	AffectedStations []string           `json:"affectedStations,omitempty"`
	TimeWindow       *models.TimeWindow `json:"timeWindow,omitempty"`
	CurrentPlan      []PlanEntry        `json:"currentPlan,omitempty"`
	CurrentSchedule  []ScheduleTrip     `json:"currentSchedule,omitempty"`
}

type Request struct {
	Prompt  string          `json:"prompt"`
	Context *RequestContext `json:"context"`
}

type Metrics struct {
	Impact         string  `json:"impact"`
	Feasibility    float64 `json:"feasibility"`
	EstimatedDelay int     `json:"estimatedDelay"`
}

type Preview struct {
	Changes   []models.TrainDecision `json:"changes"`
	Metrics   Metrics                `json:"metrics"`
	Reasoning string                 `json:"reasoning"`
}

type Alternative struct {
	Option      string   `json:"option"`
	Description string   `json:"description"`
	Tradeoffs   []string `json:"tradeoffs"`
}

type Response struct {
	RequestID        string         `json:"requestId"`
	Intent           IntentType     `json:"intent"`
	Preview          Preview        `json:"preview"`
	Alternatives     []Alternative  `json:"alternatives"`
	Confidence       float64        `json:"confidence"`
	RequiresApproval bool           `json:"requiresApproval"`
	ModifiedSchedule []ScheduleTrip `json:"modifiedSchedule,omitempty"`
}

// Copilot answers operator commands against one fleet snapshot.
type Copilot struct {
	snapshot *models.FleetSnapshot
	clock    clock.Clock
	loc      *time.Location
}

// New builds a copilot. loc is used for the times written into added trips.
func New(snapshot *models.FleetSnapshot, c clock.Clock, loc *time.Location) *Copilot {
	if snapshot == nil {
		snapshot = &models.FleetSnapshot{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Copilot{
		snapshot: snapshot,
		clock:    c,
		loc:      loc,
	}
}

// Process answers a command against the fleet snapshot.
func (c *Copilot) Process(ctx context.Context, req Request) Response {
	intent := ParseIntent(req.Prompt)

	var resp Response
	switch intent.Type {
	case IntentWithdraw:
		resp = c.withdraw(intent)
	case IntentShortTurn:
		resp = c.shortTurn(intent)
	case IntentGapFill, IntentInjectStandby:
		resp = c.gapFill(intent)
	case IntentSkipStop:
		resp = c.skipStop(intent)
	default:
		resp = c.generic()
	}
	resp.Intent = intent.Type

	c.log(ctx, "copilot_fleet_request", intent, resp)
	return resp
}

func (c *Copilot) log(ctx context.Context, op string, intent Intent, resp Response) {
	logger := logging.Component(logging.FromContext(ctx), "copilot")
	logging.LogOperation(logger, op,
		slog.String("request_id", resp.RequestID),
		slog.String("intent", string(intent.Type)),
		slog.Int("changes", len(resp.Preview.Changes)),
		slog.Float64("confidence", resp.Confidence))
}

func (c *Copilot) requestID() string {
	return fmt.Sprintf("req_%d", c.clock.Now().UnixMilli())
}

// findTrain matches a fleet train by id or by its train number.
func (c *Copilot) findTrain(id string) *models.Train {
	if train := c.snapshot.FindTrain(id); train != nil {
		return train
	}
	for i := range c.snapshot.Trains {
		if strings.EqualFold(c.snapshot.Trains[i].TrainNumber, id) {
			return &c.snapshot.Trains[i]
		}
	}
	return nil
}

// readyStandby returns standby trains with valid certificates and no open
// critical job card, in snapshot order.
func (c *Copilot) readyStandby() []models.Train {
	now := c.clock.Now()
	var ready []models.Train
	for _, train := range c.snapshot.Trains {
		if train.Status == models.StatusStandby && c.snapshot.ReadyForService(train, now) {
			ready = append(ready, train)
		}
	}
	return ready
}

func (c *Copilot) withdraw(intent Intent) Response {
	if len(intent.Entities.Trains) == 0 {
		return c.errorResponse("No train specified for withdrawal")
	}
	trainID := intent.Entities.Trains[0]
	if c.findTrain(trainID) == nil {
		return c.errorResponse(fmt.Sprintf("Train %s not found", trainID))
	}

	standby := c.readyStandby()
	if len(standby) == 0 {
		return c.errorResponse("No standby trains available for replacement")
	}
	replacement := standby[0]

	return Response{
		RequestID: c.requestID(),
		Preview: Preview{
			Changes: []models.TrainDecision{
				withdrawalChange(trainID, intent.Entities.Reason, nil),
				replacementChange(replacement.ID, trainID),
			},
			Metrics: Metrics{
				Impact:         "Service maintained with standby replacement",
				Feasibility:    0.9,
				EstimatedDelay: 5,
			},
			Reasoning: fmt.Sprintf("Withdrawing %s and replacing with standby train %s. Service continuity maintained.", trainID, replacement.ID),
		},
		Alternatives:     []Alternative{altCancelService, altDelayWithdrawal},
		Confidence:       0.9,
		RequiresApproval: true,
	}
}

func (c *Copilot) shortTurn(intent Intent) Response {
	if len(intent.Entities.Trains) == 0 {
		return c.errorResponse("No train specified for short turn")
	}
	trainID := intent.Entities.Trains[0]
	train := c.findTrain(trainID)
	if train == nil {
		return c.errorResponse(fmt.Sprintf("Train %s not found", trainID))
	}

	var affected []string
	for _, tb := range c.snapshot.TripBlocks {
		if tb.TrainID == train.ID && tb.Status == "scheduled" {
			affected = append(affected, tb.TripID)
		}
	}

	station := firstOr(intent.Entities.Stations, "")
	change := shortTurnChange(trainID, station, intent.Entities.Reason)
	change.TripAssignments = affected

	return Response{
		RequestID: c.requestID(),
		Preview: Preview{
			Changes:   []models.TrainDecision{change},
			Metrics:   shortTurnMetrics(station),
			Reasoning: shortTurnReasoning(trainID, station),
		},
		Alternatives:     []Alternative{altContinueToDestination, altCancelTrip},
		Confidence:       0.8,
		RequiresApproval: true,
	}
}

func (c *Copilot) gapFill(intent Intent) Response {
	standby := c.readyStandby()
	if len(standby) == 0 {
		return c.errorResponse("No standby trains available for gap filling")
	}
	selected := standby[0]

	return Response{
		RequestID: c.requestID(),
		Preview: Preview{
			Changes:   []models.TrainDecision{gapFillChange(selected.ID, intent.Entities.Reason)},
			Metrics:   gapFillMetrics,
			Reasoning: gapFillReasoning(selected.ID),
		},
		Alternatives:     []Alternative{altAdjustHeadways, altCancelAffectedTrips},
		Confidence:       0.9,
		RequiresApproval: true,
	}
}

func (c *Copilot) skipStop(intent Intent) Response {
	if len(intent.Entities.Stations) == 0 {
		return c.errorResponse("No station specified for skip stop")
	}
	station := intent.Entities.Stations[0]

	metrics := skipStopMetrics(station)
	metrics.EstimatedDelay = 1

	return Response{
		RequestID: c.requestID(),
		Preview: Preview{
			Changes:   []models.TrainDecision{skipStopChange(station, intent.Entities.Reason)},
			Metrics:   metrics,
			Reasoning: skipStopReasoning(station),
		},
		Alternatives:     []Alternative{altContinueNormalService, altTerminateEarly},
		Confidence:       0.7,
		RequiresApproval: true,
	}
}

func (c *Copilot) generic() Response {
	return Response{
		RequestID: c.requestID(),
		Preview: Preview{
			Changes: []models.TrainDecision{},
			Metrics: Metrics{
				Impact:      "No specific action identified",
				Feasibility: 0.5,
			},
			Reasoning: "Could not parse specific operational request. Please provide more details.",
		},
		Alternatives:     []Alternative{altClarify},
		Confidence:       0.3,
		RequiresApproval: false,
	}
}

func (c *Copilot) errorResponse(message string) Response {
	return Response{
		RequestID: c.requestID(),
		Preview: Preview{
			Changes:   []models.TrainDecision{},
			Metrics:   Metrics{Impact: "Error"},
			Reasoning: message,
		},
		Alternatives:     []Alternative{},
		Confidence:       0,
		RequiresApproval: false,
	}
}

func firstOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return values[0]
}
