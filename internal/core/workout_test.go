package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalcBurnZones(t *testing.T) {
	// age 54: HRmax 166
	cases := []struct {
		hr   float64
		zone int
		fat  int
	}{
		{90, 1, 70},
		{105, 2, 60},
		{120, 3, 50},
		{140, 4, 25},
		{160, 5, 10},
	}
	for _, tc := range cases {
		hr := tc.hr
		b := CalcBurn(Workout{HasWorkout: true, ActiveEnergyKJ: 2092, AvgHR: &hr}, 54)
		assert.Equal(t, 166, b.HRMax)
		assert.Equal(t, tc.zone, b.Zone, "hr %v", tc.hr)
		assert.Equal(t, tc.fat, b.FatPct, "hr %v", tc.hr)
		assert.Equal(t, 100, b.FatPct+b.CarbsPct)
		assert.Equal(t, 500.0, b.KcalBurned)
	}
}

func TestCalcBurnWithoutHeartRate(t *testing.T) {
	b := CalcBurn(Workout{HasWorkout: true, ActiveEnergyKJ: 1000}, 54)
	assert.Equal(t, 3, b.Zone)
	assert.Equal(t, 239.0, b.KcalBurned)
	assert.Equal(t, 13.3, b.FatGBurned)
	assert.Equal(t, 29.9, b.CarbsGBurned)
}

func TestApplyWorkoutAdjustsGoals(t *testing.T) {
	day := NewDate(2025, 4, 7)
	s := Daily(day, []MealEntry{entry(day, Lunch, 1500, 60)}, DefaultGoals(2000))

	hr := 145.0
	hard := ApplyWorkout(s, CalcBurn(Workout{HasWorkout: true, ActiveEnergyKJ: 2092, AvgHR: &hr}, 54))
	assert.Equal(t, 2500.0, hard.Goals.Calories)
	assert.Equal(t, 90.0, hard.Goals.ProteinG)
	assert.Equal(t, 280.0, hard.Goals.CarbsG)
	assert.Equal(t, 65.0, hard.Goals.FatG)
	assert.Equal(t, 1000.0, hard.NetCalories)
	assert.Equal(t, 60.0, hard.Progress.Calories)
	assert.NotNil(t, hard.Workout)

	hr = 95
	easy := ApplyWorkout(s, CalcBurn(Workout{HasWorkout: true, ActiveEnergyKJ: 2092, AvgHR: &hr}, 54))
	assert.Equal(t, 70.0, easy.Goals.FatG)
	assert.Equal(t, 250.0, easy.Goals.CarbsG)

	rest := ApplyWorkout(s, CalcBurn(Workout{Steps: 4000}, 54))
	assert.Equal(t, 2000.0, rest.Goals.Calories)
	assert.Equal(t, 80.0, rest.Goals.ProteinG)
	assert.Equal(t, 1500.0, rest.NetCalories)
}
