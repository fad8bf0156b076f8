package vitals

import (
	"errors"
	"testing"

	"github.com/hemobank/hemobank/internal/platform/apperr"
)

func validReading() Reading {
	return Reading{
		BloodPressure: "120/80",
		Hemoglobin:    14,
		Weight:        70,
		Pulse:         72,
		Temperature:   36.5,
	}
}

func TestParseBloodPressure(t *testing.T) {
	sys, dia, err := ParseBloodPressure("120/80")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if sys != 120 || dia != 80 {
		t.Errorf("expected 120/80, got %d/%d", sys, dia)
	}

	if _, _, err := ParseBloodPressure(" 135 / 85 "); err != nil {
		t.Errorf("whitespace should be tolerated: %v", err)
	}

	for _, s := range []string{"", "120", "120-80", "a/b", "120/80/40"} {
		if _, _, err := ParseBloodPressure(s); err == nil {
			t.Errorf("%q: expected error", s)
		}
	}
}

func TestValidateAcceptsRange(t *testing.T) {
	if err := Validate(validReading()); err != nil {
		t.Errorf("valid reading rejected: %v", err)
	}

	// Inclusive bounds on both ends.
	low := Reading{BloodPressure: "90/60", Hemoglobin: 10, Weight: 40, Pulse: 50, Temperature: 35}
	if err := Validate(low); err != nil {
		t.Errorf("lower bounds rejected: %v", err)
	}
	high := Reading{BloodPressure: "180/120", Hemoglobin: 20, Weight: 150, Pulse: 120, Temperature: 38}
	if err := Validate(high); err != nil {
		t.Errorf("upper bounds rejected: %v", err)
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name   string
		field  string
		mutate func(*Reading)
	}{
		{"systolic low", "blood_pressure", func(r *Reading) { r.BloodPressure = "89/80" }},
		{"systolic high", "blood_pressure", func(r *Reading) { r.BloodPressure = "181/80" }},
		{"diastolic low", "blood_pressure", func(r *Reading) { r.BloodPressure = "120/59" }},
		{"diastolic high", "blood_pressure", func(r *Reading) { r.BloodPressure = "120/121" }},
		{"hemoglobin low", "hemoglobin", func(r *Reading) { r.Hemoglobin = 9.9 }},
		{"hemoglobin high", "hemoglobin", func(r *Reading) { r.Hemoglobin = 20.1 }},
		{"weight low", "weight", func(r *Reading) { r.Weight = 39.9 }},
		{"weight high", "weight", func(r *Reading) { r.Weight = 150.1 }},
		{"pulse low", "pulse", func(r *Reading) { r.Pulse = 49 }},
		{"pulse high", "pulse", func(r *Reading) { r.Pulse = 121 }},
		{"temperature low", "temperature", func(r *Reading) { r.Temperature = 34.9 }},
		{"temperature high", "temperature", func(r *Reading) { r.Temperature = 38.1 }},
	}

	for _, tc := range cases {
		r := validReading()
		tc.mutate(&r)
		err := Validate(r)
		if !apperr.IsKind(err, apperr.KindValidation) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
			continue
		}
		var e *apperr.Error
		if !errors.As(err, &e) || e.Field != tc.field {
			t.Errorf("%s: expected field %q, got %+v", tc.name, tc.field, err)
		}
	}
}
