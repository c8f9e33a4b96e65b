// Package status normalizes free-text registry status strings into the fixed
// status vocabulary of the index.
package status

import (
	"slices"
	"strings"
)

// Status is the normalized lifecycle state of a template.
type Status string

// String returns the string representation of a Status.
func (s Status) String() string {
	return string(s)
}

// Template statuses.
const (
	Published         Status = "Published"
	InDevelopment     Status = "In Development"
	InReview          Status = "In Review"
	ProposalSubmitted Status = "Proposal submitted"
	Unknown           Status = "unknown"
)

// All returns every status in display order.
func All() []Status {
	return []Status{
		Published,
		InReview,
		InDevelopment,
		ProposalSubmitted,
		Unknown,
	}
}

// IsValid returns true if the Status is one of the defined constants.
func (s Status) IsValid() bool {
	return slices.Contains(All(), s)
}

// rule maps registry phrases, English and German, to a status.
// Rules are checked in order; the first match wins.
type rule struct {
	status  Status
	phrases []string
}

var phraseRules = []rule{
	{Published, []string{"published", "veröffentlicht"}},
	{InReview, []string{"in review", "in prüfung"}},
	{InDevelopment, []string{"in development", "in entwicklung"}},
	{ProposalSubmitted, []string{"proposal submitted", "vorschlag"}},
}

// keywordRules catch the abbreviated labels used on registry cards.
var keywordRules = []rule{
	{InReview, []string{"review", "prüfung"}},
	{InDevelopment, []string{"development", "entwicklung"}},
	{ProposalSubmitted, []string{"proposal"}},
}

// Normalize maps raw status text to a Status. It is total: empty or
// unrecognized input yields Unknown.
func Normalize(raw string) Status {
	t := strings.ToLower(strings.TrimSpace(raw))
	if t == "" {
		return Unknown
	}
	if s, ok := match(t, phraseRules); ok {
		return s
	}
	if s, ok := match(t, keywordRules); ok {
		return s
	}
	return Unknown
}

// Parse converts a serialized status back to a Status, accepting any casing
// of the canonical values. The boolean is false for values outside the
// vocabulary.
func Parse(value string) (Status, bool) {
	v := strings.TrimSpace(value)
	for _, s := range All() {
		if strings.EqualFold(v, string(s)) {
			return s, true
		}
	}
	return Unknown, false
}

func match(t string, rules []rule) (Status, bool) {
	for _, r := range rules {
		for _, p := range r.phrases {
			if strings.Contains(t, p) {
				return r.status, true
			}
		}
	}
	return "", false
}
