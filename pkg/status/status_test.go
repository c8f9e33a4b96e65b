package status

import (
	"testing"

	"pgregory.net/rapid"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"Published", Published},
		{"  published  ", Published},
		{"PUBLISHED (v2)", Published},
		{"Veröffentlicht", Published},
		{"In Review", InReview},
		{"in Prüfung", InReview},
		{"Review", InReview},
		{"In Development", InDevelopment},
		{"In Entwicklung", InDevelopment},
		{"development", InDevelopment},
		{"Proposal submitted", ProposalSubmitted},
		{"Vorschlag eingereicht", ProposalSubmitted},
		{"proposal", ProposalSubmitted},
		{"", Unknown},
		{"   ", Unknown},
		{"retired", Unknown},
		{"unknown", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeIsTotal(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		raw := rapid.String().Draw(rt, "raw")
		if got := Normalize(raw); !got.IsValid() {
			rt.Fatalf("Normalize(%q) = %q, outside the vocabulary", raw, got)
		}
	})
}

func TestParse(t *testing.T) {
	tests := []struct {
		value string
		want  Status
		ok    bool
	}{
		{"Published", Published, true},
		{"in development", InDevelopment, true},
		{"Proposal Submitted", ProposalSubmitted, true},
		{"unknown", Unknown, true},
		{"draft", Unknown, false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.value)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Parse(%q) = (%q, %v), want (%q, %v)", tt.value, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIsValid(t *testing.T) {
	for _, s := range All() {
		if !s.IsValid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Status("Deprecated").IsValid() {
		t.Error("Deprecated should not be valid")
	}
}
