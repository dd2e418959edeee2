package peak

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"optimetro.kochimetro.org/internal/logging"
	"optimetro.kochimetro.org/internal/models"
)

const (
	offerLifetime       = 30 * time.Minute
	complianceTolerance = 5 * time.Minute
	minFlexibility      = 0.3
	minTimeShift        = 10
	baseReward          = 10
	maxReward           = 25
	complianceBonusRate = 0.2
)

// Trip is the journey a rider intends to make.
type Trip struct {
	Origin       string    `json:"origin"`
	Destination  string    `json:"destination"`
	IntendedTime time.Time `json:"intendedTime"`
}

// OfferResult is the outcome of answering an offer.
type OfferResult struct {
	Success      bool   `json:"success"`
	RewardPoints *int   `json:"rewardPoints,omitempty"`
	Message      string `json:"message"`
}

// ComplianceResult is the outcome of checking a rider's tap-in against an
// accepted offer.
type ComplianceResult struct {
	Compliant    bool   `json:"compliant"`
	RewardPoints *int   `json:"rewardPoints,omitempty"`
	Message      string `json:"message"`
}

// Rider-facing messages for the failure sentinels.
var errorMessages = map[error]string{
	ErrOfferNotFound:  "Offer not found or expired",
	ErrOfferProcessed: "Offer already processed",
	ErrOfferExpired:   "Offer has expired",
	ErrNoActiveOffer:  "No active offer found",
}

// Message returns the rider-facing text for one of the package's sentinel
// errors, or err.Error() for anything else.
func Message(err error) string {
	if msg, ok := errorMessages[err]; ok {
		return msg
	}
	return err.Error()
}

func isPeakHour(hour int) bool {
	return (hour >= 7 && hour < 9) || (hour >= 17 && hour < 19)
}

// AnalyzeRiderBehavior decides whether to offer the rider an incentive to
// shift the trip out of the peak. It returns nil when no offer is made.
func (m *Manager) AnalyzeRiderBehavior(ctx context.Context, userID string, trip Trip) (*models.PeakShiftOffer, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	m.mu.Lock()
	profile, created := m.getOrCreateProfile(userID)
	offer := m.buildOffer(profile, trip)
	if offer != nil {
		m.offers[offer.ID] = offer
		m.offerOrder = append(m.offerOrder, offer.ID)
	}
	var writes []func(Store) error
	if created {
		saved := cloneProfile(*profile)
		writes = append(writes, func(s Store) error { return s.SaveProfile(ctx, saved) })
	}
	var result *models.PeakShiftOffer
	if offer != nil {
		o := *offer
		result = &o
		writes = append(writes, func(s Store) error { return s.SaveOffer(ctx, o) })
	}
	m.unlockAndPersist(writes...)

	if result == nil {
		return nil, nil
	}

	logging.LogOperation(logging.FromContext(ctx), "peak_offer_created",
		slog.String("offer_id", result.ID),
		slog.String("user_id", result.UserID),
		slog.Int("time_shift", result.TimeShift),
		slog.Int("reward_points", result.RewardPoints))
	return result, nil
}

// Caller must hold m.mu.
func (m *Manager) buildOffer(profile *models.RiderProfile, trip Trip) *models.PeakShiftOffer {
	hour := trip.IntendedTime.In(m.loc).Hour()
	if !isPeakHour(hour) {
		return nil
	}
	if flexibility(profile, trip) < minFlexibility {
		return nil
	}
	if !profile.ConsentFlags.PeakShifting {
		return nil
	}

	shift := m.timeShift(hour)
	if abs(shift) < minTimeShift {
		return nil
	}

	now := m.clock.Now()
	return &models.PeakShiftOffer{
		ID:            "offer_" + uuid.NewString(),
		UserID:        profile.UserID,
		OriginalTime:  trip.IntendedTime,
		SuggestedTime: trip.IntendedTime.Add(time.Duration(shift) * time.Minute),
		TimeShift:     shift,
		RewardPoints:  rewardFor(shift),
		Reason:        offerReason(shift),
		ExpiresAt:     now.Add(offerLifetime),
		Status:        models.OfferPending,
	}
}

func flexibility(profile *models.RiderProfile, trip Trip) float64 {
	score := profile.FlexibilityScore
	known := false
	for _, tp := range profile.TypicalTravelTimes {
		if tp.Origin == trip.Origin && tp.Destination == trip.Destination {
			score += math.Min(float64(len(tp.PreferredTimes))*0.1, 0.3)
			known = true
			break
		}
	}
	if !known {
		score += 0.2
	}
	return math.Min(score, 1)
}

// Caller must hold m.mu; rng is not safe for concurrent use.
func (m *Manager) timeShift(hour int) int {
	switch {
	case hour >= 7 && hour < 9:
		if m.rng.Float64() > 0.5 {
			return -12
		}
		return 15
	case hour >= 17 && hour < 19:
		if m.rng.Float64() > 0.5 {
			return -10
		}
		return 12
	}
	return 0
}

func rewardFor(shift int) int {
	return min(baseReward+abs(shift)/5*2, maxReward)
}

func offerReason(shift int) string {
	direction := "earlier"
	if shift > 0 {
		direction = "later"
	}
	return fmt.Sprintf("Help reduce crowding by traveling %d minutes %s. You'll earn reward points!", abs(shift), direction)
}

// RespondToOffer records the rider's answer to a pending offer.
func (m *Manager) RespondToOffer(ctx context.Context, offerID string, accepted bool) (OfferResult, error) {
	m.mu.Lock()
	offer, ok := m.offers[offerID]
	if !ok {
		m.mu.Unlock()
		return failedResult(ErrOfferNotFound), ErrOfferNotFound
	}
	if offer.Status != models.OfferPending {
		m.mu.Unlock()
		return failedResult(ErrOfferProcessed), ErrOfferProcessed
	}

	now := m.clock.Now()
	if now.After(offer.ExpiresAt) {
		offer.Status = models.OfferExpired
		expired := *offer
		m.unlockAndPersist(func(s Store) error { return s.SaveOffer(ctx, expired) })
		return failedResult(ErrOfferExpired), ErrOfferExpired
	}

	if !accepted {
		offer.Status = models.OfferDeclined
		declined := *offer
		m.unlockAndPersist(func(s Store) error { return s.SaveOffer(ctx, declined) })
		return OfferResult{Success: true, Message: "No problem! Your original travel time is confirmed."}, nil
	}

	offer.Status = models.OfferAccepted
	points := offer.RewardPoints
	saved := *offer
	reward, profile := m.creditLocked(offer.UserID, models.RewardPeakShift, points,
		fmt.Sprintf("Peak shift reward: %d minutes", offer.TimeShift), now)
	writes := append([]func(Store) error{
		func(s Store) error { return s.SaveOffer(ctx, saved) },
	}, creditWrites(ctx, reward, profile)...)
	m.unlockAndPersist(writes...)

	logging.LogOperation(logging.FromContext(ctx), "peak_offer_accepted",
		slog.String("offer_id", offerID),
		slog.Int("reward_points", points))
	return OfferResult{
		Success:      true,
		RewardPoints: &points,
		Message:      fmt.Sprintf("Thank you! You've earned %d reward points.", points),
	}, nil
}

// VerifyCompliance checks a tap-in against an accepted offer and pays the
// compliance bonus when the rider travelled within five minutes of the
// suggested time.
func (m *Manager) VerifyCompliance(ctx context.Context, offerID string, actualTapIn time.Time) (ComplianceResult, error) {
	m.mu.Lock()
	offer, ok := m.offers[offerID]
	if !ok || offer.Status != models.OfferAccepted {
		m.mu.Unlock()
		return ComplianceResult{Message: Message(ErrNoActiveOffer)}, ErrNoActiveOffer
	}

	diff := actualTapIn.Sub(offer.SuggestedTime)
	if diff < 0 {
		diff = -diff
	}
	if diff > complianceTolerance {
		m.mu.Unlock()
		return ComplianceResult{Message: "You arrived outside the suggested time window. No bonus points awarded."}, nil
	}

	bonus := int(math.Floor(float64(offer.RewardPoints) * complianceBonusRate))
	reward, profile := m.creditLocked(offer.UserID, models.RewardCompliance, bonus,
		"Compliance bonus for peak shift", m.clock.Now())
	m.unlockAndPersist(creditWrites(ctx, reward, profile)...)
	return ComplianceResult{
		Compliant:    true,
		RewardPoints: &bonus,
		Message:      fmt.Sprintf("Excellent! You arrived within the suggested time and earned a %d point compliance bonus.", bonus),
	}, nil
}

// creditLocked adds points to the rider and records the ledger entry. The
// profile is nil when the rider no longer exists. Caller must hold m.mu.
func (m *Manager) creditLocked(userID string, kind models.RewardType, points int, description string, now time.Time) (*models.RewardTransaction, *models.RiderProfile) {
	profile, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	profile.RewardPoints += points
	reward := models.RewardTransaction{
		ID:          "reward_" + uuid.NewString(),
		UserID:      userID,
		Type:        kind,
		Points:      points,
		Description: description,
		Timestamp:   now.UTC(),
		Verified:    true,
	}
	m.rewards = append(m.rewards, reward)
	p := cloneProfile(*profile)
	return &reward, &p
}

func creditWrites(ctx context.Context, reward *models.RewardTransaction, profile *models.RiderProfile) []func(Store) error {
	if reward == nil {
		return nil
	}
	return []func(Store) error{
		func(s Store) error { return s.AppendReward(ctx, *reward) },
		func(s Store) error { return s.SaveProfile(ctx, *profile) },
	}
}

// GetActiveOffers returns the rider's pending offers in creation order.
func (m *Manager) GetActiveOffers(userID string) []models.PeakShiftOffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := []models.PeakShiftOffer{}
	for _, id := range m.offerOrder {
		o := m.offers[id]
		if o.UserID == userID && o.Status == models.OfferPending {
			active = append(active, *o)
		}
	}
	return active
}

func failedResult(err error) OfferResult {
	return OfferResult{Message: Message(err)}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
