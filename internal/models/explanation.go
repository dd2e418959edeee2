package models

type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
	ImpactNeutral  Impact = "neutral"
)

type ConstraintSeverity string

const (
	SeverityHard ConstraintSeverity = "hard"
	SeveritySoft ConstraintSeverity = "soft"
)

type ExplanationFactor struct {
	Factor      string  `json:"factor"`
	Weight      float64 `json:"weight"`
	Impact      Impact  `json:"impact"`
	Description string  `json:"description"`
}

type ConstraintStatus struct {
	Constraint string             `json:"constraint"`
	Satisfied  bool               `json:"satisfied"`
	Severity   ConstraintSeverity `json:"severity"`
}

type Tradeoff struct {
	Aspect      string  `json:"aspect"`
	Current     float64 `json:"current"`
	Alternative float64 `json:"alternative"`
	Explanation string  `json:"explanation"`
}

type Reasoning struct {
	Factors     []ExplanationFactor `json:"factors"`
	Constraints []ConstraintStatus  `json:"constraints"`
	Tradeoffs   []Tradeoff          `json:"tradeoffs"`
}

type AlternativeAction struct {
	Action string  `json:"action"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

type AIExplanation struct {
	TrainID      string              `json:"trainId"`
	Decision     string              `json:"decision"`
	Reasoning    Reasoning           `json:"reasoning"`
	Confidence   float64             `json:"confidence"`
	Alternatives []AlternativeAction `json:"alternatives"`
}
