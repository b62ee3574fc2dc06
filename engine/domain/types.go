// Package domain defines core domain types, constants, and validation for the
// ClimateIQ engine. It acts as the validation gate at pipeline entry points.
package domain

import "time"

// Document is a source document submitted to the knowledge base.
type Document struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// Source returns the document's source identifier, or "unknown".
func (d Document) Source() string {
	if s := d.Metadata["source"]; s != "" {
		return s
	}
	return "unknown"
}

// Category returns the document's topical label, or "general".
func (d Document) Category() string {
	if c := d.Metadata["category"]; c != "" {
		return c
	}
	return "general"
}

// Profile holds the optional user context appended to retrieval queries.
type Profile struct {
	Location      string `json:"location,omitempty"`
	Lifestyle     string `json:"lifestyle,omitempty"`
	HouseholdSize int    `json:"household_size,omitempty"`
}

// IsZero reports whether no hint fields are set.
func (p Profile) IsZero() bool {
	return p.Location == "" && p.Lifestyle == "" && p.HouseholdSize == 0
}

// ActionInput is the caller-supplied description of a climate action.
type ActionInput struct {
	ActionType  string  `json:"action_type"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Description string  `json:"description,omitempty"`
	Location    string  `json:"location,omitempty"`
	Verified    bool    `json:"verified,omitempty"`
}

// Impact holds the derived environmental quantities for one action.
// Values are computed once at insertion and never recomputed, even if
// the factor table changes later.
type Impact struct {
	CO2Kg       float64 `json:"co2_kg"`
	EnergyKWh   float64 `json:"energy_kwh"`
	WaterLiters float64 `json:"water_liters"`
	WasteKg     float64 `json:"waste_kg"`
}

// ActionRecord is one immutable entry in a user's impact ledger.
type ActionRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ActionType  string    `json:"action_type"`
	Quantity    float64   `json:"quantity"`
	Unit        string    `json:"unit"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Verified    bool      `json:"verified"`
	Timestamp   time.Time `json:"timestamp"`
	Impact      Impact    `json:"impact"`
}

// Metric selects the dimension a leaderboard is ranked by.
type Metric string

const (
	MetricCarbon Metric = "carbon_saved_kg"
	MetricEnergy Metric = "energy_saved_kwh"
	MetricWater  Metric = "water_saved_liters"
	MetricWaste  Metric = "waste_reduced_kg"
)

// ValidMetrics is the set of recognised leaderboard metrics.
var ValidMetrics = map[Metric]bool{
	MetricCarbon: true, MetricEnergy: true,
	MetricWater: true, MetricWaste: true,
}

// GoalStatus is the lifecycle state of a user goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalAbandoned GoalStatus = "abandoned"
	GoalExpired   GoalStatus = "expired"
)

// Terminal reports whether no further transitions are allowed.
func (s GoalStatus) Terminal() bool {
	return s == GoalCompleted || s == GoalAbandoned || s == GoalExpired
}

// goalTransitions enumerates the allowed lifecycle moves.
var goalTransitions = map[GoalStatus][]GoalStatus{
	GoalActive: {GoalCompleted, GoalAbandoned, GoalExpired},
}

// CanTransition reports whether a goal may move from s to next.
func (s GoalStatus) CanTransition(next GoalStatus) bool {
	for _, t := range goalTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Goal is a user-defined target over one impact metric.
type Goal struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Metric    Metric     `json:"metric"`
	Target    float64    `json:"target"`
	Current   float64    `json:"current"`
	Status    GoalStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	Deadline  time.Time  `json:"deadline,omitzero"`
}

// Progress returns completion as a percentage, capped at 100.
// A zero target is defined as 0% rather than an error.
func (g Goal) Progress() float64 {
	if g.Target <= 0 {
		return 0
	}
	p := g.Current / g.Target * 100
	if p > 100 {
		p = 100
	}
	return p
}
