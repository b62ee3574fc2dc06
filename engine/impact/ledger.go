package impact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ClimateIQ/climateiq-mvp/engine/domain"
	"github.com/ClimateIQ/climateiq-mvp/pkg/repo"
	"github.com/google/uuid"
)

// TrackedSubject is the NATS subject tracked actions are announced on.
const TrackedSubject = "climate.actions.tracked"

// LeaderboardWindowDays is the summary window leaderboards rank over.
const LeaderboardWindowDays = 30

// Store abstracts action record persistence. Records are append-only; no
// store implementation exposes mutation or deletion.
type Store interface {
	Append(ctx context.Context, rec domain.ActionRecord) error
	ListByUser(ctx context.Context, userID string) ([]domain.ActionRecord, error)
	Users(ctx context.Context) ([]string, error)
}

// EventPublisher receives tracked-action notifications. Failures are logged,
// never surfaced to the tracking caller.
type EventPublisher interface {
	ActionTracked(ctx context.Context, rec domain.ActionRecord) error
}

// Ledger is the impact tracking service: it records actions, keeps per-user
// totals queryable, ranks users, and advances goals.
type Ledger struct {
	store  Store
	calc   *Calculator
	goals  repo.Repository[domain.Goal, string]
	events EventPublisher
	log    *slog.Logger

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// NewLedger creates a Ledger. The goals repository and event publisher may
// be nil to disable those features.
func NewLedger(store Store, goals repo.Repository[domain.Goal, string], events EventPublisher, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{
		store:  store,
		calc:   NewCalculator(),
		goals:  goals,
		events: events,
		log:    log,
		users:  make(map[string]*sync.Mutex),
	}
}

// userLock returns the mutex serializing writes for one user.
func (l *Ledger) userLock(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.users[userID]
	if !ok {
		m = &sync.Mutex{}
		l.users[userID] = m
	}
	return m
}

// TrackResult is the response to a tracked action.
type TrackResult struct {
	Record        domain.ActionRecord `json:"record"`
	Encouragement string              `json:"encouragement"`
}

// TrackAction validates and records one action, computing its impact at
// insertion time. Unknown action types are accepted with a token credit.
// Writes for the same user are serialized; different users proceed in
// parallel.
func (l *Ledger) TrackAction(ctx context.Context, userID string, in domain.ActionInput) (*TrackResult, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id", userID, domain.ErrInvalidInput)
	}
	if err := domain.ValidateActionInput(in); err != nil {
		return nil, err
	}

	rec := domain.ActionRecord{
		ID:          uuid.NewString(),
		UserID:      userID,
		ActionType:  in.ActionType,
		Quantity:    in.Quantity,
		Unit:        in.Unit,
		Description: in.Description,
		Location:    in.Location,
		Verified:    in.Verified,
		Timestamp:   time.Now().UTC(),
		Impact:      l.calc.Calculate(in),
	}

	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := l.store.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("impact: track action: %w", err)
	}

	l.advanceGoals(ctx, rec)

	if l.events != nil {
		if err := l.events.ActionTracked(ctx, rec); err != nil {
			l.log.Warn("impact: event publish failed", "err", err, "action_id", rec.ID)
		}
	}

	l.log.Info("impact: action tracked",
		"user", userID, "type", rec.ActionType, "co2_kg", rec.Impact.CO2Kg)

	return &TrackResult{
		Record:        rec,
		Encouragement: Encouragement(rec.Impact.CO2Kg),
	}, nil
}

// Summary aggregates a user's ledger over a time window.
type Summary struct {
	UserID      string         `json:"user_id"`
	PeriodDays  int            `json:"period_days"`
	Actions     int            `json:"actions"`
	CO2Kg       float64        `json:"co2_saved_kg"`
	EnergyKWh   float64        `json:"energy_saved_kwh"`
	WaterLiters float64        `json:"water_saved_liters"`
	WasteKg     float64        `json:"waste_reduced_kg"`
	ByType      map[string]int `json:"actions_by_type"`
	Equivalents Equivalents    `json:"equivalents"`
	FirstAction time.Time      `json:"first_action,omitzero"`
	LastAction  time.Time      `json:"last_action,omitzero"`
}

// Summary returns the aggregate impact for a user over the trailing
// periodDays window; periodDays <= 0 covers all time. A user with no
// recorded actions gets a well-formed zero summary, not an error.
func (l *Ledger) Summary(ctx context.Context, userID string, periodDays int) (*Summary, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id", userID, domain.ErrInvalidInput)
	}

	recs, err := l.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("impact: summary: %w", err)
	}

	var cutoff time.Time
	if periodDays > 0 {
		cutoff = time.Now().UTC().AddDate(0, 0, -periodDays)
	}

	sum := &Summary{UserID: userID, PeriodDays: periodDays, ByType: make(map[string]int)}
	for _, r := range recs {
		if !cutoff.IsZero() && r.Timestamp.Before(cutoff) {
			continue
		}
		sum.Actions++
		sum.CO2Kg += r.Impact.CO2Kg
		sum.EnergyKWh += r.Impact.EnergyKWh
		sum.WaterLiters += r.Impact.WaterLiters
		sum.WasteKg += r.Impact.WasteKg
		sum.ByType[r.ActionType]++
		if sum.FirstAction.IsZero() || r.Timestamp.Before(sum.FirstAction) {
			sum.FirstAction = r.Timestamp
		}
		if r.Timestamp.After(sum.LastAction) {
			sum.LastAction = r.Timestamp
		}
	}
	sum.CO2Kg = round3(sum.CO2Kg)
	sum.EnergyKWh = round3(sum.EnergyKWh)
	sum.WaterLiters = round3(sum.WaterLiters)
	sum.WasteKg = round3(sum.WasteKg)
	sum.Equivalents = EquivalentsFor(sum.CO2Kg, sum.EnergyKWh)
	return sum, nil
}

// LeaderboardEntry ranks one user on a metric.
type LeaderboardEntry struct {
	Rank    int     `json:"rank"`
	UserID  string  `json:"user_id"`
	Value   float64 `json:"value"`
	Actions int     `json:"actions"`
}

// Leaderboard ranks users by metric value accumulated over the trailing
// LeaderboardWindowDays window, descending. Users with no in-window actions
// are omitted. Ties break by action count, then user ID for a stable order.
// limit <= 0 means all users.
func (l *Ledger) Leaderboard(ctx context.Context, metric domain.Metric, limit int) ([]LeaderboardEntry, error) {
	if !domain.ValidMetrics[metric] {
		return nil, domain.NewValidationError("metric", string(metric), domain.ErrUnknownMetric)
	}

	users, err := l.store.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("impact: leaderboard: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -LeaderboardWindowDays)
	entries := make([]LeaderboardEntry, 0, len(users))
	for _, u := range users {
		recs, err := l.store.ListByUser(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("impact: leaderboard user %s: %w", u, err)
		}
		var total float64
		actions := 0
		for _, r := range recs {
			if r.Timestamp.Before(cutoff) {
				continue
			}
			actions++
			total += metricValue(r.Impact, metric)
		}
		if actions == 0 {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			UserID:  u,
			Value:   round3(total),
			Actions: actions,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		if entries[i].Actions != entries[j].Actions {
			return entries[i].Actions > entries[j].Actions
		}
		return entries[i].UserID < entries[j].UserID
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// History returns a user's raw ledger entries, newest first.
func (l *Ledger) History(ctx context.Context, userID string) ([]domain.ActionRecord, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id", userID, domain.ErrInvalidInput)
	}
	recs, err := l.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("impact: history: %w", err)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Timestamp.After(recs[j].Timestamp) })
	return recs, nil
}

func metricValue(imp domain.Impact, m domain.Metric) float64 {
	switch m {
	case domain.MetricCarbon:
		return imp.CO2Kg
	case domain.MetricEnergy:
		return imp.EnergyKWh
	case domain.MetricWater:
		return imp.WaterLiters
	case domain.MetricWaste:
		return imp.WasteKg
	}
	return 0
}

// --- Goals ---

// CreateGoal validates and stores a new active goal for a user.
func (l *Ledger) CreateGoal(ctx context.Context, g domain.Goal) (domain.Goal, error) {
	if l.goals == nil {
		return domain.Goal{}, errors.New("impact: goals disabled")
	}
	if err := domain.ValidateGoal(g); err != nil {
		return domain.Goal{}, err
	}
	g.ID = uuid.NewString()
	g.Status = domain.GoalActive
	g.Current = 0
	g.CreatedAt = time.Now().UTC()
	created, err := l.goals.Create(ctx, g)
	if err != nil {
		return domain.Goal{}, fmt.Errorf("impact: create goal: %w", err)
	}
	return created, nil
}

// ListGoals returns a user's goals, expiring overdue active ones on read.
func (l *Ledger) ListGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	if l.goals == nil {
		return nil, nil
	}
	goals, err := l.goals.List(ctx, repo.ListOpts{Filter: map[string]any{"user_id": userID}})
	if err != nil {
		return nil, fmt.Errorf("impact: list goals: %w", err)
	}
	now := time.Now().UTC()
	for i, g := range goals {
		if g.Status == domain.GoalActive && !g.Deadline.IsZero() && g.Deadline.Before(now) {
			g.Status = domain.GoalExpired
			if updated, err := l.goals.Update(ctx, g); err == nil {
				goals[i] = updated
			} else {
				l.log.Warn("impact: expire goal failed", "err", err, "goal_id", g.ID)
			}
		}
	}
	return goals, nil
}

// UpdateGoalStatus moves a goal through its lifecycle. Only transitions out
// of the active state are allowed.
func (l *Ledger) UpdateGoalStatus(ctx context.Context, goalID string, next domain.GoalStatus) (domain.Goal, error) {
	if l.goals == nil {
		return domain.Goal{}, errors.New("impact: goals disabled")
	}
	g, err := l.goals.Get(ctx, goalID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Goal{}, domain.ErrGoalNotFound
		}
		return domain.Goal{}, fmt.Errorf("impact: get goal: %w", err)
	}
	if !g.Status.CanTransition(next) {
		return domain.Goal{}, fmt.Errorf("impact: %s to %s: %w", g.Status, next, domain.ErrGoalTransition)
	}
	g.Status = next
	updated, err := l.goals.Update(ctx, g)
	if err != nil {
		return domain.Goal{}, fmt.Errorf("impact: update goal: %w", err)
	}
	return updated, nil
}

// advanceGoals credits a tracked action against the user's active goals,
// completing any that reach their target. Goal errors never fail tracking.
func (l *Ledger) advanceGoals(ctx context.Context, rec domain.ActionRecord) {
	if l.goals == nil {
		return
	}
	goals, err := l.goals.List(ctx, repo.ListOpts{Filter: map[string]any{"user_id": rec.UserID}})
	if err != nil {
		l.log.Warn("impact: goal lookup failed", "err", err, "user", rec.UserID)
		return
	}
	for _, g := range goals {
		if g.Status != domain.GoalActive {
			continue
		}
		delta := metricValue(rec.Impact, g.Metric)
		if delta <= 0 {
			continue
		}
		g.Current = round3(g.Current + delta)
		if g.Current >= g.Target {
			g.Status = domain.GoalCompleted
		}
		if _, err := l.goals.Update(ctx, g); err != nil {
			l.log.Warn("impact: goal update failed", "err", err, "goal_id", g.ID)
		}
	}
}
