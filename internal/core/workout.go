package core

// KJPerKcal converts active energy to food calories.
const KJPerKcal = 4.184

// Workout is the training data reported for one date.
type Workout struct {
	HasWorkout     bool     `json:"has_workout"`
	ActiveEnergyKJ float64  `json:"active_energy_kj"`
	AvgHR          *float64 `json:"avg_hr"`
	DurationMin    float64  `json:"duration_min"`
	Steps          int      `json:"steps"`
}

// Burn is a workout together with the energy and substrate split derived
// from it.
type Burn struct {
	Workout
	KcalBurned   float64 `json:"kcal_burned"`
	FatGBurned   float64 `json:"fat_g_burned"`
	CarbsGBurned float64 `json:"carbs_g_burned"`
	FatPct       int     `json:"fat_pct"`
	CarbsPct     int     `json:"carbs_pct"`
	Zone         int     `json:"zone"`
	ZoneLabel    string  `json:"zone_label"`
	HRMax        int     `json:"hr_max"`
}

type zone struct {
	limit    float64 // upper bound, percent of HRmax
	number   int
	fatPct   int
	carbsPct int
	label    string
}

var zones = []zone{
	{60, 1, 70, 30, "base (fat burning)"},
	{70, 2, 60, 40, "fat burning"},
	{80, 3, 50, 50, "aerobic (mixed)"},
	{90, 4, 25, 75, "anaerobic (carb dominant)"},
	{0, 5, 10, 90, "maximum"},
}

var mixedZone = zones[2]

// CalcBurn derives burned calories and the heart rate zone of a workout
// for a person of the given age. Without an average heart rate the mixed
// zone is assumed.
func CalcBurn(w Workout, age int) Burn {
	hrMax := 220 - age
	b := Burn{Workout: w, HRMax: hrMax}
	if w.ActiveEnergyKJ > 0 {
		b.KcalBurned = Round(w.ActiveEnergyKJ/KJPerKcal, 0)
	}

	z := mixedZone
	if w.AvgHR != nil && *w.AvgHR > 0 && hrMax > 0 {
		pct := *w.AvgHR / float64(hrMax) * 100
		z = zones[len(zones)-1]
		for _, c := range zones[:len(zones)-1] {
			if pct < c.limit {
				z = c
				break
			}
		}
	}
	b.Zone = z.number
	b.ZoneLabel = z.label
	b.FatPct = z.fatPct
	b.CarbsPct = z.carbsPct
	b.FatGBurned = Round(b.KcalBurned*float64(z.fatPct)/100/9, 1)
	b.CarbsGBurned = Round(b.KcalBurned*float64(z.carbsPct)/100/4, 1)
	return b
}

// ApplyWorkout adjusts the goals of a daily summary for the burned energy.
func ApplyWorkout(s DailySummary, b Burn) DailySummary {
	s.Goals.Calories = s.BaseGoal + b.KcalBurned
	if b.HasWorkout {
		s.Goals.ProteinG = 90
		if b.KcalBurned > 0 {
			switch {
			case b.Zone >= 4:
				s.Goals.CarbsG = 280
			case b.Zone <= 2:
				s.Goals.FatG = 70
			}
		}
	}
	s.Progress.Calories = percent(s.Totals.Calories, s.Goals.Calories)
	s.NetCalories = Round(s.Totals.Calories-b.KcalBurned, 0)
	s.Workout = &b
	return s
}
