package impact

import (
	"testing"

	"github.com/ClimateIQ/climateiq-mvp/engine/domain"
)

func TestCalculateKnownFactors(t *testing.T) {
	calc := NewCalculator()
	tests := []struct {
		name    string
		in      domain.ActionInput
		wantCO2 float64
	}{
		{"led bulbs", domain.ActionInput{ActionType: "led_bulb_replacement", Quantity: 3, Unit: "bulbs"}, 1.5},
		{"bike commute", domain.ActionInput{ActionType: "bike_commute_km", Quantity: 10, Unit: "km"}, 2.1},
		{"tree planted", domain.ActionInput{ActionType: "tree_planted", Quantity: 2, Unit: "trees"}, 44},
		{"vegetarian meal", domain.ActionInput{ActionType: "vegetarian_meal", Quantity: 1, Unit: "meals"}, 2.5},
		{"water saved", domain.ActionInput{ActionType: "water_conservation_liters", Quantity: 100, Unit: "liters"}, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp := calc.Calculate(tt.in)
			if imp.CO2Kg != tt.wantCO2 {
				t.Fatalf("CO2Kg = %v, want %v", imp.CO2Kg, tt.wantCO2)
			}
		})
	}
}

func TestCalculateUnknownTypeGetsTokenCredit(t *testing.T) {
	calc := NewCalculator()
	imp := calc.Calculate(domain.ActionInput{ActionType: "interpretive_dance", Quantity: 5, Unit: "dances"})
	if imp.CO2Kg != 0.05 {
		t.Fatalf("CO2Kg = %v, want default factor * quantity", imp.CO2Kg)
	}
}

func TestCalculateDerivedDimensions(t *testing.T) {
	calc := NewCalculator()

	energy := calc.Calculate(domain.ActionInput{ActionType: "solar_panel_kwh", Quantity: 10, Unit: "kwh"})
	if energy.EnergyKWh != 8 { // 10 * 0.4 co2 * 2.0
		t.Fatalf("EnergyKWh = %v, want 8", energy.EnergyKWh)
	}

	water := calc.Calculate(domain.ActionInput{ActionType: "water_conservation_liters", Quantity: 50, Unit: "liters"})
	if water.WaterLiters != 50 {
		t.Fatalf("WaterLiters = %v, want 50", water.WaterLiters)
	}

	waste := calc.Calculate(domain.ActionInput{ActionType: "recycling_kg", Quantity: 10, Unit: "kg"})
	if waste.WasteKg != 8 {
		t.Fatalf("WasteKg = %v, want 8", waste.WasteKg)
	}
	if waste.EnergyKWh != 0 || waste.WaterLiters != 0 {
		t.Fatalf("unrelated dimensions credited: %+v", waste)
	}
}

func TestCalculateDeterministic(t *testing.T) {
	calc := NewCalculator()
	in := domain.ActionInput{ActionType: "composting_kg", Quantity: 3.333, Unit: "kg"}
	a := calc.Calculate(in)
	b := calc.Calculate(in)
	if a != b {
		t.Fatalf("calculation not deterministic: %+v vs %+v", a, b)
	}
}

func TestEquivalentsFor(t *testing.T) {
	eq := EquivalentsFor(44, 1.2)
	if eq.TreesPlantedYears != 2.0 {
		t.Errorf("TreesPlantedYears = %v, want 2.0", eq.TreesPlantedYears)
	}
	if eq.CarMilesAvoided != 108.9 { // 44 / 0.404
		t.Errorf("CarMilesAvoided = %v, want 108.9", eq.CarMilesAvoided)
	}
	if eq.SmartphoneCharges != 100.0 { // 1.2 / 0.012
		t.Errorf("SmartphoneCharges = %v, want 100", eq.SmartphoneCharges)
	}
}

func TestEquivalentsSmartphoneChargesWholeCount(t *testing.T) {
	eq := EquivalentsFor(0, 0.0125) // 1.0416 charges
	if eq.SmartphoneCharges != 1 {
		t.Fatalf("SmartphoneCharges = %v, want whole-number rounding", eq.SmartphoneCharges)
	}
}

func TestEncouragementTiers(t *testing.T) {
	tests := []struct {
		co2  float64
		want string
	}{
		{0, EncourageZero},
		{0.0005, EncourageZero},
		{0.5, EncourageSmall},
		{1.0, EncourageMid},
		{10.0, EncourageMid},
		{22.0, EncourageLarge},
	}
	for _, tt := range tests {
		if got := Encouragement(tt.co2); got != tt.want {
			t.Errorf("Encouragement(%v) = %q, want %q", tt.co2, got, tt.want)
		}
	}
}

func TestCO2FactorFallback(t *testing.T) {
	if got := CO2Factor("led_bulb_replacement"); got != 0.5 {
		t.Fatalf("known factor = %v", got)
	}
	if got := CO2Factor("nonexistent"); got != DefaultCO2Factor {
		t.Fatalf("unknown factor = %v, want default", got)
	}
	if len(KnownActionTypes()) != len(co2Factors) {
		t.Fatal("KnownActionTypes incomplete")
	}
}
