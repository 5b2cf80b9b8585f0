// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package validation

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type inner struct {
	Interval int `koanf:"interval_ms" validate:"gt=0"`
}

type sample struct {
	Name     string   `json:"name" validate:"required,max=5"`
	Severity string   `koanf:"severity" validate:"omitempty,severity"`
	Channels []string `koanf:"channels" validate:"dive,channel"`
	Level    string   `validate:"oneof=debug info"`
	Engine   inner    `koanf:"engine"`
}

func validSample() sample {
	return sample{
		Name:     "abc",
		Severity: "warning",
		Channels: []string{"slack", "email"},
		Level:    "info",
		Engine:   inner{Interval: 10},
	}
}

func TestValidator_Singleton(t *testing.T) {
	if Validator() != Validator() {
		t.Error("Validator() should return the same instance")
	}
}

func TestStruct_Valid(t *testing.T) {
	s := validSample()
	if err := Struct(&s); err != nil {
		t.Fatalf("Struct() = %v, want nil", err)
	}
}

func TestStruct_Fields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*sample)
		want   FieldError
	}{
		{
			name:   "required uses json name",
			mutate: func(s *sample) { s.Name = "" },
			want:   FieldError{Field: "name", Tag: "required", Message: "name is required"},
		},
		{
			name:   "string max",
			mutate: func(s *sample) { s.Name = "toolong" },
			want:   FieldError{Field: "name", Tag: "max", Param: "5", Message: "name must be at most 5 characters"},
		},
		{
			name:   "severity",
			mutate: func(s *sample) { s.Severity = "fatal" },
			want:   FieldError{Field: "severity", Tag: "severity", Message: "severity must be one of info, warning, critical"},
		},
		{
			name:   "channel in slice",
			mutate: func(s *sample) { s.Channels = []string{"pager"} },
			want:   FieldError{Field: "channels[0]", Tag: "channel", Message: "channels[0] must be one of webhook, email, slack"},
		},
		{
			name:   "oneof uses Go name without tags",
			mutate: func(s *sample) { s.Level = "loud" },
			want:   FieldError{Field: "Level", Tag: "oneof", Param: "debug info", Message: "Level must be one of: debug info"},
		},
		{
			name:   "nested koanf path",
			mutate: func(s *sample) { s.Engine.Interval = 0 },
			want:   FieldError{Field: "engine.interval_ms", Tag: "gt", Param: "0", Message: "engine.interval_ms must be greater than 0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSample()
			tt.mutate(&s)

			err := Struct(&s)
			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("Struct() error = %v, want *Error", err)
			}
			if diff := cmp.Diff([]FieldError{tt.want}, verr.Fields()); diff != "" {
				t.Errorf("Fields() mismatch (-want +got):\n%s", diff)
			}
			if verr.Error() != tt.want.Message {
				t.Errorf("Error() = %q, want %q", verr.Error(), tt.want.Message)
			}
		})
	}
}

func TestStruct_MultipleFieldsJoined(t *testing.T) {
	s := validSample()
	s.Name = ""
	s.Engine.Interval = -1

	err := Struct(&s)
	want := "name is required; engine.interval_ms must be greater than 0"
	if err == nil || err.Error() != want {
		t.Errorf("Struct() error = %v, want %q", err, want)
	}
}

func TestStruct_NonStruct(t *testing.T) {
	err := Struct("not a struct")
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("Struct() error = %v, want *Error", err)
	}
	if got := verr.Fields()[0].Field; got != "unknown" {
		t.Errorf("Field = %q, want unknown", got)
	}
}
