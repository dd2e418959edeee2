package copilot

import (
	"regexp"
	"strings"
)

type IntentType string

const (
	IntentWithdraw      IntentType = "withdraw"
	IntentShortTurn     IntentType = "short_turn"
	IntentGapFill       IntentType = "gap_fill"
	IntentInjectStandby IntentType = "inject_standby"
	IntentSkipStop      IntentType = "skip_stop"
	IntentGeneric       IntentType = "generic"
)

// DefaultReason is used when the prompt gives no reason.
const DefaultReason = "operational requirement"

type Entities struct {
	Trains   []string `json:"trains,omitempty"`
	Stations []string `json:"stations,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

type Intent struct {
	Type       IntentType `json:"type"`
	Entities   Entities   `json:"entities"`
	Confidence float64    `json:"confidence"`
}

var (
	kmrcPattern    = regexp.MustCompile(`(?i)kmrc[-\s]*(\d+)`)
	trainPattern   = regexp.MustCompile(`(?i)train[-\s]*(\d+)`)
	numberPattern  = regexp.MustCompile(`\b(\d{2,3})\b`)
	stationPattern = regexp.MustCompile(`(?i)(?:at|from|to)\s+([A-Za-z\s]+?)(?:\s|$)`)
	reasonPattern  = regexp.MustCompile(`(?i)(?:due to|because|reason:)\s+(.+)`)
)

type intentRule struct {
	intent     IntentType
	keywords   []string
	trains     bool
	stations   bool
	confidence float64
}

// Rules are tried in order; the first keyword hit wins.
var intentRules = []intentRule{
	{IntentWithdraw, []string{"withdraw", "remove", "take out"}, true, false, 0.9},
	{IntentShortTurn, []string{"short turn", "terminate early", "turn back"}, true, true, 0.9},
	{IntentGapFill, []string{"gap", "fill", "replace"}, true, false, 0.8},
	{IntentInjectStandby, []string{"inject", "add", "bring in"}, true, false, 0.8},
	{IntentSkipStop, []string{"skip", "bypass", "miss"}, false, true, 0.8},
}

// ParseIntent classifies a free-text operator command and pulls out the
// trains, stations and reason it mentions.
func ParseIntent(prompt string) Intent {
	lower := strings.ToLower(prompt)

	for _, rule := range intentRules {
		if !containsAny(lower, rule.keywords) {
			continue
		}
		entities := Entities{Reason: extractReason(prompt)}
		if rule.trains {
			entities.Trains = extractTrainIDs(prompt)
		}
		if rule.stations {
			entities.Stations = extractStations(prompt)
		}
		return Intent{Type: rule.intent, Entities: entities, Confidence: rule.confidence}
	}

	return Intent{
		Type:       IntentGeneric,
		Entities:   Entities{Reason: extractReason(prompt)},
		Confidence: 0.5,
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// extractTrainIDs returns KMRC ids, then "Train n" ids, then bare numbers.
func extractTrainIDs(prompt string) []string {
	var ids []string
	for _, m := range kmrcPattern.FindAllStringSubmatch(prompt, -1) {
		ids = append(ids, "KMRC "+m[1])
	}
	for _, m := range trainPattern.FindAllStringSubmatch(prompt, -1) {
		ids = append(ids, "Train "+m[1])
	}
	for _, m := range numberPattern.FindAllStringSubmatch(prompt, -1) {
		ids = append(ids, m[1])
	}
	return ids
}

func extractStations(prompt string) []string {
	var stations []string
	for _, m := range stationPattern.FindAllStringSubmatch(prompt, -1) {
		if name := strings.TrimSpace(m[1]); name != "" {
			stations = append(stations, name)
		}
	}
	return stations
}

func extractReason(prompt string) string {
	if m := reasonPattern.FindStringSubmatch(prompt); m != nil {
		return m[1]
	}
	return DefaultReason
}
