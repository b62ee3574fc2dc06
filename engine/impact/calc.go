package impact

import (
	"math"
	"strings"

	"github.com/ClimateIQ/climateiq-mvp/engine/domain"
)

// Calculator derives environmental impact from an action description.
// Calculation is pure and deterministic: the same input always yields the
// same Impact.
type Calculator struct{}

// NewCalculator returns a Calculator over the built-in factor table.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate computes the impact of an action. CO2 comes from the factor
// table; energy, water, and waste are derived heuristically from the action
// type so related dimensions are credited too. All values are rounded to
// three decimals.
func (c *Calculator) Calculate(in domain.ActionInput) domain.Impact {
	co2 := CO2Factor(in.ActionType) * in.Quantity

	var imp domain.Impact
	imp.CO2Kg = round3(co2)

	t := strings.ToLower(in.ActionType)
	if containsAny(t, "energy", "solar", "led", "thermostat") {
		imp.EnergyKWh = round3(co2 * 2.0)
	}
	if containsAny(t, "water", "conservation") {
		imp.WaterLiters = round3(in.Quantity * 1.0)
	}
	if containsAny(t, "recycling", "composting", "waste") {
		imp.WasteKg = round3(in.Quantity * 0.8)
	}
	return imp
}

// Equivalents expresses accumulated impact in relatable terms, rounded to
// one decimal except smartphone charges, which round to a whole count.
type Equivalents struct {
	TreesPlantedYears float64 `json:"trees_planted_years"`
	CarMilesAvoided   float64 `json:"car_miles_avoided"`
	CoalKgNotBurned   float64 `json:"coal_kg_not_burned"`
	GasolineLiters    float64 `json:"gasoline_liters_saved"`
	SmartphoneCharges float64 `json:"smartphone_charges"`
}

// EquivalentsFor converts raw totals into equivalence terms.
func EquivalentsFor(co2Kg, energyKWh float64) Equivalents {
	return Equivalents{
		TreesPlantedYears: round1(co2Kg / TreeYearCO2Kg),
		CarMilesAvoided:   round1(co2Kg / CarMileCO2Kg),
		CoalKgNotBurned:   round1(co2Kg / CoalCO2PerKg),
		GasolineLiters:    round1(co2Kg / GasolineCO2PerLiter),
		SmartphoneCharges: math.Round(energyKWh / SmartphoneChargeKWh),
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
