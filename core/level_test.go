package core

import (
	"errors"
	"testing"
)

func TestIsEnabled(t *testing.T) {
	tests := []struct {
		name   string
		level  LogEventLevel
		target LogEventLevel
		want   bool
	}{
		{"information enables fatal", InformationLevel, FatalLevel, true},
		{"information enables warning", InformationLevel, WarningLevel, true},
		{"information enables information", InformationLevel, InformationLevel, true},
		{"information disables debug", InformationLevel, DebugLevel, false},
		{"verbose enables everything", VerboseLevel, DebugLevel, true},
		{"off disables fatal", OffLevel, FatalLevel, false},
		{"fatal disables error", FatalLevel, ErrorLevel, false},
		{"custom bit on warning", WarningLevel | 1<<10, ErrorLevel, true},
		{"custom target requires its bit", WarningLevel, WarningLevel | 1<<10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEnabled(tt.level, tt.target); got != tt.want {
				t.Errorf("IsEnabled(%v, %v) = %v, want %v", tt.level, tt.target, got, tt.want)
			}
		})
	}
}

func TestLevelMasksAreCumulative(t *testing.T) {
	levels := []LogEventLevel{FatalLevel, ErrorLevel, WarningLevel, InformationLevel, DebugLevel, VerboseLevel}
	for i := 1; i < len(levels); i++ {
		lower, higher := levels[i-1], levels[i]
		if higher&lower != lower {
			t.Errorf("%v does not contain %v", higher, lower)
		}
		if higher == lower {
			t.Errorf("%v and %v share a mask", higher, lower)
		}
	}
	if VerboseLevel&DebugLevel != DebugLevel {
		t.Error("verbose & debug should equal debug")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogEventLevel
	}{
		{"off", OffLevel},
		{"Fatal", FatalLevel},
		{"ERROR", ErrorLevel},
		{"warn", WarningLevel},
		{"Information", InformationLevel},
		{"inf", InformationLevel},
		{"debug", DebugLevel},
		{" verbose ", VerboseLevel},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if err != nil {
			t.Fatalf("ParseLevel(%q) returned error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}

	if _, err := ParseLevel("loud"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for unknown level, got %v", err)
	}
}

func TestLogEventLevel_String(t *testing.T) {
	if got := WarningLevel.String(); got != "Warning" {
		t.Errorf("WarningLevel.String() = %q", got)
	}
	if got := LogEventLevel(1 << 12).String(); got != "Level(4096)" {
		t.Errorf("custom level String() = %q", got)
	}
}

func TestDeliveryError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDeliveryError(&struct{}{}, "emit", cause)

	if !errors.Is(err, ErrDeliveryFailed) {
		t.Error("DeliveryError should match ErrDeliveryFailed")
	}
	if !errors.Is(err, cause) {
		t.Error("DeliveryError should unwrap to its cause")
	}
	var de *DeliveryError
	if !errors.As(err, &de) || de.Op != "emit" {
		t.Errorf("errors.As failed or wrong op: %+v", de)
	}
}
