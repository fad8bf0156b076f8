// Package vitals centralizes the numeric screening ranges used when a
// doctor resolves a donor's health check. The ranges are inclusive.
package vitals

import (
	"strconv"
	"strings"

	"github.com/hemobank/hemobank/internal/platform/apperr"
)

// Screening bounds. Blood pressure is carried as a "sys/dia" string and
// validated against the systolic/diastolic bounds after parsing.
const (
	SystolicMin  = 90
	SystolicMax  = 180
	DiastolicMin = 60
	DiastolicMax = 120

	HemoglobinMin = 10.0 // g/dL
	HemoglobinMax = 20.0

	WeightMin = 40.0 // kg
	WeightMax = 150.0

	PulseMin = 50 // bpm
	PulseMax = 120

	TemperatureMin = 35.0 // °C
	TemperatureMax = 38.0
)

// Reading bundles one set of measured vitals.
type Reading struct {
	BloodPressure string  `json:"blood_pressure"`
	Hemoglobin    float64 `json:"hemoglobin"`
	Weight        float64 `json:"weight"`
	Pulse         int     `json:"pulse"`
	Temperature   float64 `json:"temperature"`
}

// ParseBloodPressure parses a "<systolic>/<diastolic>" string.
func ParseBloodPressure(s string) (systolic, diastolic int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return 0, 0, apperr.ValidationField("blood_pressure", "must be formatted as systolic/diastolic")
	}
	systolic, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, apperr.ValidationField("blood_pressure", "systolic value is not a number")
	}
	diastolic, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, apperr.ValidationField("blood_pressure", "diastolic value is not a number")
	}
	return systolic, diastolic, nil
}

// Validate checks every measurement against its screening range and
// returns the first violation. A nil return means the reading is
// acceptable for donation screening; the eligibility decision itself
// remains the doctor's.
func Validate(r Reading) error {
	systolic, diastolic, err := ParseBloodPressure(r.BloodPressure)
	if err != nil {
		return err
	}
	if systolic < SystolicMin || systolic > SystolicMax {
		return apperr.ValidationField("blood_pressure",
			"systolic %d outside %d-%d mmHg", systolic, SystolicMin, SystolicMax)
	}
	if diastolic < DiastolicMin || diastolic > DiastolicMax {
		return apperr.ValidationField("blood_pressure",
			"diastolic %d outside %d-%d mmHg", diastolic, DiastolicMin, DiastolicMax)
	}
	if r.Hemoglobin < HemoglobinMin || r.Hemoglobin > HemoglobinMax {
		return apperr.ValidationField("hemoglobin",
			"%.1f outside %.0f-%.0f g/dL", r.Hemoglobin, HemoglobinMin, HemoglobinMax)
	}
	if r.Weight < WeightMin || r.Weight > WeightMax {
		return apperr.ValidationField("weight",
			"%.1f outside %.0f-%.0f kg", r.Weight, WeightMin, WeightMax)
	}
	if r.Pulse < PulseMin || r.Pulse > PulseMax {
		return apperr.ValidationField("pulse",
			"%d outside %d-%d bpm", r.Pulse, PulseMin, PulseMax)
	}
	if r.Temperature < TemperatureMin || r.Temperature > TemperatureMax {
		return apperr.ValidationField("temperature",
			"%.1f outside %.0f-%.0f °C", r.Temperature, TemperatureMin, TemperatureMax)
	}
	return nil
}
