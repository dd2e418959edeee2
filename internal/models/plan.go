package models

import "time"

type ObjectiveWeights struct {
	Feasibility    float64 `json:"feasibility" yaml:"feasibility"`
	Shunting       float64 `json:"shunting" yaml:"shunting"`
	MileageBalance float64 `json:"mileageBalance" yaml:"mileageBalance"`
	Branding       float64 `json:"branding" yaml:"branding"`
	Cleaning       float64 `json:"cleaning" yaml:"cleaning"`
}

type OptimizationConstraints struct {
	MaxRun         int `json:"maxRun" yaml:"maxRun"`
	MaxStandby     int `json:"maxStandby" yaml:"maxStandby"`
	MaxMaintenance int `json:"maxMaintenance" yaml:"maxMaintenance"`
	MinHeadway     int `json:"minHeadway" yaml:"minHeadway"`
	MaxShunting    int `json:"maxShunting" yaml:"maxShunting"`
}

type TimeWindow struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

type OptimizationConfig struct {
	Weights     ObjectiveWeights        `json:"weights" yaml:"weights"`
	Constraints OptimizationConstraints `json:"constraints" yaml:"constraints"`
	TimeWindow  TimeWindow              `json:"timeWindow" yaml:"timeWindow"`
	Seed        *float64                `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// Clone returns a copy that shares no memory with c.
func (c OptimizationConfig) Clone() OptimizationConfig {
	if c.Seed != nil {
		seed := *c.Seed
		c.Seed = &seed
	}
	return c
}

type TrainDecision struct {
	TrainID          string   `json:"trainId"`
	Action           Action   `json:"action"`
	Score            float64  `json:"score"`
	Reason           string   `json:"reason"`
	Constraints      []string `json:"constraints"`
	BayAssignment    string   `json:"bayAssignment,omitempty"`
	TripAssignments  []string `json:"tripAssignments,omitempty"`
	EstimatedTurnout string   `json:"estimatedTurnout,omitempty"`
	Confidence       float64  `json:"confidence"`
}

// Conflict types raised against a plan.
const (
	ConflictFitness  = "fitness"
	ConflictJobCard  = "jobcard"
	ConflictBranding = "branding"
)

type Conflict struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	Severity       string   `json:"severity"`
	Description    string   `json:"description"`
	AffectedTrains []string `json:"affectedTrains"`
	Resolution     string   `json:"resolution,omitempty"`
	Status         string   `json:"status"`
}

type PlanMetrics struct {
	TotalShunting        int     `json:"totalShunting"`
	MileageVariance      float64 `json:"mileageVariance"`
	BrandingCompliance   float64 `json:"brandingCompliance"`
	ConstraintViolations int     `json:"constraintViolations"`
}

type InductionPlan struct {
	ID               string           `json:"id"`
	ModelVersion     string           `json:"modelVersion"`
	ObjectiveWeights ObjectiveWeights `json:"objectiveWeights"`
	Seed             float64          `json:"seed"`
	GeneratedAt      time.Time        `json:"generatedAt"`
	Decisions        []TrainDecision  `json:"decisions"`
	Conflicts        []Conflict       `json:"conflicts"`
	Metrics          PlanMetrics      `json:"metrics"`
}

// Count returns how many decisions carry the given action.
func (p *InductionPlan) Count(action Action) int {
	n := 0
	for _, d := range p.Decisions {
		if d.Action == action {
			n++
		}
	}
	return n
}

// PlanSummary is the listing form of a stored plan.
type PlanSummary struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generatedAt"`
	Revenue     int       `json:"revenue"`
	Standby     int       `json:"standby"`
	IBL         int       `json:"ibl"`
}
