// Package impact implements the append-only action ledger: impact
// calculation from a static factor table, per-user summaries with relatable
// equivalents, leaderboards, and goal tracking.
package impact

// DefaultCO2Factor applies to action types missing from the factor table.
// Unknown actions are recorded with a token credit, never rejected.
const DefaultCO2Factor = 0.01

// co2Factors maps an action type to kilograms of CO2 avoided per unit.
// Values are fixed for a given release; records keep the impact computed at
// insertion time even if a later release revises a factor.
var co2Factors = map[string]float64{
	"led_bulb_replacement":      0.5,
	"bike_commute_km":           0.21,
	"public_transport_km":       0.15,
	"carpooling_km":             0.105,
	"vegetarian_meal":           2.5,
	"meat_free_meal":            2.5,
	"local_food_kg":             0.5,
	"food_waste_reduction_kg":   2.5,
	"composting_kg":             0.5,
	"recycling_kg":              1.5,
	"electronic_recycling_kg":   2.0,
	"green_energy_kwh":          0.4,
	"solar_panel_kwh":           0.4,
	"thermostat_adjustment":     1.2,
	"tree_planted":              22.0,
	"water_conservation_liters": 0.001,
	"reusable_bag":              0.05,
	"car_trip_avoided_km":       0.21,
}

// CO2Factor returns the per-unit CO2 factor for an action type, falling back
// to DefaultCO2Factor for unknown types.
func CO2Factor(actionType string) float64 {
	if f, ok := co2Factors[actionType]; ok {
		return f
	}
	return DefaultCO2Factor
}

// KnownActionTypes returns the action types with dedicated factors.
func KnownActionTypes() []string {
	types := make([]string, 0, len(co2Factors))
	for t := range co2Factors {
		types = append(types, t)
	}
	return types
}

// Equivalence divisors translating raw quantities into relatable terms.
const (
	// TreeYearCO2Kg is the CO2 a mature tree absorbs per year.
	TreeYearCO2Kg = 22.0
	// CarMileCO2Kg is the CO2 emitted per mile by an average passenger car.
	CarMileCO2Kg = 0.404
	// CoalCO2PerKg is the CO2 emitted burning one kilogram of coal.
	CoalCO2PerKg = 2.86
	// GasolineCO2PerLiter is the CO2 emitted burning one liter of gasoline.
	GasolineCO2PerLiter = 2.31
	// SmartphoneChargeKWh is the energy of one full smartphone charge.
	SmartphoneChargeKWh = 0.012
)

// Encouragement tier thresholds in kilograms of CO2.
const (
	EncourageSmallBelowKg = 1.0
	EncourageLargeAboveKg = 10.0
)

// Encouragement tier messages, keyed by how much CO2 a single action avoided.
var (
	EncourageZero  = "Every action counts. Keep building the habit!"
	EncourageSmall = "Nice one! Small steps add up to real change."
	EncourageMid   = "Great work! That's a solid dent in your footprint."
	EncourageLarge = "Outstanding! That's a major climate contribution."
)

// Encouragement returns the tier message for a single action's CO2 savings.
func Encouragement(co2Kg float64) string {
	switch {
	case co2Kg < 0.001:
		return EncourageZero
	case co2Kg < EncourageSmallBelowKg:
		return EncourageSmall
	case co2Kg <= EncourageLargeAboveKg:
		return EncourageMid
	default:
		return EncourageLarge
	}
}
