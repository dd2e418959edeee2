// Package peak runs the rider peak-shift incentive scheme: it offers riders
// reward points for travelling outside the rush hours and keeps the ledger.
package peak

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"optimetro.kochimetro.org/internal/clock"
	"optimetro.kochimetro.org/internal/logging"
	"optimetro.kochimetro.org/internal/models"
)

const (
	DefaultSweepInterval = time.Minute
	defaultFlexibility   = 0.5
)

var (
	ErrOfferNotFound  = errors.New("offer not found or expired")
	ErrOfferProcessed = errors.New("offer already processed")
	ErrOfferExpired   = errors.New("offer has expired")
	ErrNoActiveOffer  = errors.New("no active offer found")
	ErrMissingUserID  = errors.New("userId is required")
)

// State is everything the manager persists.
type State struct {
	Profiles []models.RiderProfile
	Offers   []models.PeakShiftOffer
	Rewards  []models.RewardTransaction
}

// Store persists peak-shift state. Writes happen after each change.
type Store interface {
	SaveProfile(ctx context.Context, profile models.RiderProfile) error
	SaveOffer(ctx context.Context, offer models.PeakShiftOffer) error
	AppendReward(ctx context.Context, reward models.RewardTransaction) error
	LoadPeakState(ctx context.Context) (State, error)
}

// Manager holds rider profiles, offers and the reward ledger.
type Manager struct {
	mu         sync.Mutex
	profiles   map[string]*models.RiderProfile
	offers     map[string]*models.PeakShiftOffer
	offerOrder []string
	rewards    []models.RewardTransaction
	rng        *rand.Rand
	nextWrite  uint64 // store write tickets, handed out under mu

	persistMu   sync.Mutex
	persistCond *sync.Cond
	doneWrites  uint64

	clock         clock.Clock
	loc           *time.Location
	store         Store
	logger        *slog.Logger
	sweepInterval time.Duration

	shutdownChan chan struct{}
	wg           sync.WaitGroup
	startOnce    sync.Once
	shutdownOnce sync.Once
}

type Option func(*Manager)

// WithRand sets the source used to pick between an earlier or later shift.
func WithRand(rng *rand.Rand) Option {
	return func(m *Manager) { m.rng = rng }
}

func WithStore(store Store) Option {
	return func(m *Manager) { m.store = store }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logging.Component(logger, "peak_manager") }
}

func WithSweepInterval(d time.Duration) Option {
	return func(m *Manager) { m.sweepInterval = d }
}

// NewManager builds an empty manager. loc is the timezone peak hours are
// judged in.
func NewManager(c clock.Clock, loc *time.Location, opts ...Option) *Manager {
	if loc == nil {
		loc = time.UTC
	}
	m := &Manager{
		profiles:      make(map[string]*models.RiderProfile),
		offers:        make(map[string]*models.PeakShiftOffer),
		clock:         c,
		loc:           loc,
		logger:        logging.Component(slog.Default(), "peak_manager"),
		sweepInterval: DefaultSweepInterval,
		shutdownChan:  make(chan struct{}),
	}
	m.persistCond = sync.NewCond(&m.persistMu)
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		seed := uint64(c.Now().UnixNano())
		m.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	return m
}

// Restore loads persisted state. It replaces whatever the manager holds.
func (m *Manager) Restore(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	state, err := m.store.LoadPeakState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load peak state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles = make(map[string]*models.RiderProfile, len(state.Profiles))
	for _, p := range state.Profiles {
		p := cloneProfile(p)
		m.profiles[p.UserID] = &p
	}
	m.offers = make(map[string]*models.PeakShiftOffer, len(state.Offers))
	m.offerOrder = m.offerOrder[:0]
	for _, o := range state.Offers {
		o := o
		m.offers[o.ID] = &o
		m.offerOrder = append(m.offerOrder, o.ID)
	}
	m.rewards = slices.Clone(state.Rewards)

	m.logger.Info("peak state restored",
		slog.Int("profiles", len(m.profiles)),
		slog.Int("offers", len(m.offers)),
		slog.Int("rewards", len(m.rewards)))
	return nil
}

// Start runs the expired-offer sweeper until Shutdown.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		m.wg.Add(1)
		go m.sweep()
	})
}

func (m *Manager) sweep() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.shutdownChan:
			return
		case <-ticker.C:
			if n := m.CleanupExpiredOffers(context.Background()); n > 0 {
				m.logger.Debug("expired peak offers", slog.Int("count", n))
			}
		}
	}
}

// Shutdown stops the sweeper and waits for it to exit.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.shutdownChan)
		m.wg.Wait()
	})
}

// HashUserID returns the pseudonym stored on a rider profile.
func HashUserID(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}

// Caller must hold m.mu.
func (m *Manager) getOrCreateProfile(userID string) (*models.RiderProfile, bool) {
	if p, ok := m.profiles[userID]; ok {
		return p, false
	}
	p := &models.RiderProfile{
		UserID:             userID,
		HashedID:           HashUserID(userID),
		TypicalTravelTimes: []models.TravelPattern{},
		FlexibilityScore:   defaultFlexibility,
	}
	m.profiles[userID] = p
	return p, true
}

// GetRiderProfile returns a copy of the rider's profile.
func (m *Manager) GetRiderProfile(userID string) (models.RiderProfile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return models.RiderProfile{}, false
	}
	return cloneProfile(*p), true
}

// ProfileUpdate carries the profile fields to change. Nil fields are left
// as they are.
type ProfileUpdate struct {
	FlexibilityScore   *float64               `json:"flexibilityScore,omitempty"`
	TypicalTravelTimes []models.TravelPattern `json:"typicalTravelTimes,omitempty"`
	ConsentFlags       *models.ConsentFlags   `json:"consentFlags,omitempty"`
	RewardPoints       *int                   `json:"rewardPoints,omitempty"`
}

// UpdateRiderProfile merges update into the rider's profile, creating the
// profile when needed.
func (m *Manager) UpdateRiderProfile(ctx context.Context, userID string, update ProfileUpdate) (models.RiderProfile, error) {
	if userID == "" {
		return models.RiderProfile{}, ErrMissingUserID
	}

	m.mu.Lock()
	p, _ := m.getOrCreateProfile(userID)
	if update.FlexibilityScore != nil {
		p.FlexibilityScore = *update.FlexibilityScore
	}
	if update.TypicalTravelTimes != nil {
		p.TypicalTravelTimes = cloneProfile(models.RiderProfile{TypicalTravelTimes: update.TypicalTravelTimes}).TypicalTravelTimes
	}
	if update.ConsentFlags != nil {
		p.ConsentFlags = *update.ConsentFlags
	}
	if update.RewardPoints != nil {
		p.RewardPoints = *update.RewardPoints
	}
	updated := cloneProfile(*p)
	m.unlockAndPersist(func(s Store) error { return s.SaveProfile(ctx, updated) })
	return updated, nil
}

// GetRewardHistory returns the rider's ledger entries, oldest first.
func (m *Manager) GetRewardHistory(userID string) []models.RewardTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	history := []models.RewardTransaction{}
	for _, r := range m.rewards {
		if r.UserID == userID {
			history = append(history, r)
		}
	}
	return history
}

// unlockAndPersist releases m.mu and runs the store writes. Writes reach the
// store in the order the changes were made in memory, without holding m.mu
// while the store works. Failures are logged; in-memory state stays
// authoritative. Caller must hold m.mu.
func (m *Manager) unlockAndPersist(writes ...func(Store) error) {
	if m.store == nil || len(writes) == 0 {
		m.mu.Unlock()
		return
	}
	ticket := m.nextWrite
	m.nextWrite++
	m.mu.Unlock()

	m.persistMu.Lock()
	for m.doneWrites != ticket {
		m.persistCond.Wait()
	}
	m.persistMu.Unlock()

	for _, write := range writes {
		if err := write(m.store); err != nil {
			logging.LogError(m.logger, "failed to persist peak state", err)
		}
	}

	m.persistMu.Lock()
	m.doneWrites++
	m.persistCond.Broadcast()
	m.persistMu.Unlock()
}

func cloneProfile(p models.RiderProfile) models.RiderProfile {
	c := p
	if p.TypicalTravelTimes != nil {
		c.TypicalTravelTimes = make([]models.TravelPattern, len(p.TypicalTravelTimes))
		for i, tp := range p.TypicalTravelTimes {
			tp.PreferredTimes = slices.Clone(tp.PreferredTimes)
			c.TypicalTravelTimes[i] = tp
		}
	}
	return c
}
