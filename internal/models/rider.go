package models

import "time"

type TravelPattern struct {
	Origin         string   `json:"origin"`
	Destination    string   `json:"destination"`
	PreferredTimes []string `json:"preferredTimes"`
}

type ConsentFlags struct {
	PeakShifting  bool `json:"peakShifting"`
	DataAnalytics bool `json:"dataAnalytics"`
	Notifications bool `json:"notifications"`
}

type RiderProfile struct {
	UserID             string          `json:"userId"`
	HashedID           string          `json:"hashedId"`
	TypicalTravelTimes []TravelPattern `json:"typicalTravelTimes"`
	FlexibilityScore   float64         `json:"flexibilityScore"`
	RewardPoints       int             `json:"rewardPoints"`
	ConsentFlags       ConsentFlags    `json:"consentFlags"`
}

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferDeclined OfferStatus = "declined"
	OfferExpired  OfferStatus = "expired"
)

type PeakShiftOffer struct {
	ID            string      `json:"id"`
	UserID        string      `json:"userId"`
	OriginalTime  time.Time   `json:"originalTime"`
	SuggestedTime time.Time   `json:"suggestedTime"`
	TimeShift     int         `json:"timeShift"`
	RewardPoints  int         `json:"rewardPoints"`
	Reason        string      `json:"reason"`
	ExpiresAt     time.Time   `json:"expiresAt"`
	Status        OfferStatus `json:"status"`
}

type RewardType string

const (
	RewardPeakShift  RewardType = "peak_shift"
	RewardCompliance RewardType = "compliance"
	RewardBonus      RewardType = "bonus"
)

type RewardTransaction struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Type        RewardType `json:"type"`
	Points      int        `json:"points"`
	Description string     `json:"description"`
	Timestamp   time.Time  `json:"timestamp"`
	Verified    bool       `json:"verified"`
}
