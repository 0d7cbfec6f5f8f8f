package main

import (
	"math"
	"strings"
	"testing"

	"github.com/pthm-cable/psys/params"
)

func TestParamPerMode(t *testing.T) {
	tests := []struct {
		name string
		edit func(*CurveState)
		kind params.Kind
	}{
		{"oscillate", func(s *CurveState) { s.Mode = ModeOscillate }, params.KindOscillate},
		{"eased", func(s *CurveState) { s.Mode = ModeEased; s.Easing = 3 }, params.KindEased},
		{"curved linear", func(s *CurveState) { s.Mode = ModeCurved }, params.KindCurvedLinear},
		{"curved spline", func(s *CurveState) { s.Mode = ModeCurved; s.Spline = true }, params.KindCurvedSpline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultState()
			tt.edit(&s)
			p, err := s.Param()
			if err != nil {
				t.Fatalf("Param: %v", err)
			}
			if p.Kind() != tt.kind {
				t.Errorf("expected %v, got %v", tt.kind, p.Kind())
			}
		})
	}
}

func TestCurvedPassesThroughPoints(t *testing.T) {
	s := DefaultState()
	s.Mode = ModeCurved
	p, err := s.Param()
	if err != nil {
		t.Fatalf("Param: %v", err)
	}
	if v := p.Value(0.5); math.Abs(v-1) > 1e-9 {
		t.Errorf("expected 1 at the middle point, got %v", v)
	}
}

func TestSpanFollowsMode(t *testing.T) {
	s := DefaultState()
	s.Frequency = 2
	if got := s.Span(); got != 1 {
		t.Errorf("expected two periods of a 2 Hz wave to span 1s, got %v", got)
	}
	s.Mode = ModeEased
	s.Duration = 3
	if got := s.Span(); got != 3 {
		t.Errorf("expected the eased duration, got %v", got)
	}
}

func TestSampleRange(t *testing.T) {
	vals, lo, hi := Sample(&params.Oscillate{Frequency: 1, Amplitude: 2, Base: 1}, 1, 101)
	if len(vals) != 101 {
		t.Fatalf("expected 101 samples, got %d", len(vals))
	}
	if math.Abs(lo+1) > 1e-9 || math.Abs(hi-3) > 1e-9 {
		t.Errorf("expected range [-1, 3], got [%v, %v]", lo, hi)
	}

	_, lo, hi = Sample(params.NewFixed(4), 1, 10)
	if lo != 3.5 || hi != 4.5 {
		t.Errorf("expected a flat curve to be padded, got [%v, %v]", lo, hi)
	}
}

func TestYAML(t *testing.T) {
	text, err := YAML("velocity", &params.Oscillate{Frequency: 2, Amplitude: 1})
	if err != nil {
		t.Fatalf("YAML: %v", err)
	}
	for _, want := range []string{"velocity:", "type: oscillate", "oscillate_frequency: 2"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in\n%s", want, text)
		}
	}
}
