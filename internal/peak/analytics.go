package peak

import (
	"context"

	"optimetro.kochimetro.org/internal/models"
)

const peakReductionPerAcceptance = 0.1

type Analytics struct {
	TotalOffers       int     `json:"totalOffers"`
	AcceptanceRate    float64 `json:"acceptanceRate"`
	AverageTimeShift  float64 `json:"averageTimeShift"`
	TotalRewardPoints int     `json:"totalRewardPoints"`
	PeakReduction     float64 `json:"peakReduction"`
}

// GetAnalytics summarises every offer made and the whole reward ledger.
func (m *Manager) GetAnalytics() Analytics {
	m.mu.Lock()
	defer m.mu.Unlock()

	var accepted, shiftSum int
	for _, o := range m.offers {
		if o.Status == models.OfferAccepted {
			accepted++
			shiftSum += abs(o.TimeShift)
		}
	}
	points := 0
	for _, r := range m.rewards {
		points += r.Points
	}

	a := Analytics{
		TotalOffers:       len(m.offers),
		TotalRewardPoints: points,
		PeakReduction:     float64(accepted) * peakReductionPerAcceptance,
	}
	if a.TotalOffers > 0 {
		a.AcceptanceRate = float64(accepted) / float64(a.TotalOffers)
	}
	if accepted > 0 {
		a.AverageTimeShift = float64(shiftSum) / float64(accepted)
	}
	return a
}

// CleanupExpiredOffers marks pending offers past their expiry as expired and
// returns how many changed.
func (m *Manager) CleanupExpiredOffers(ctx context.Context) int {
	m.mu.Lock()
	now := m.clock.Now()
	var writes []func(Store) error
	for _, id := range m.offerOrder {
		o := m.offers[id]
		if o.Status == models.OfferPending && o.ExpiresAt.Before(now) {
			o.Status = models.OfferExpired
			expired := *o
			writes = append(writes, func(s Store) error { return s.SaveOffer(ctx, expired) })
		}
	}
	m.unlockAndPersist(writes...)
	return len(writes)
}
