// Package genre maps a feature vector to a coarse genre label through a fixed,
// ordered decision list. The first matching rule wins; Pop is the fallback.
package genre

import (
	"github.com/RyanBlaney/sonido-genre/features"
)

// Label is a genre tag from a closed set
type Label string

const (
	Classical Label = "Classical"
	Jazz      Label = "Jazz"
	Phonk     Label = "Phonk"
	HipHop    Label = "Hip-Hop / Rap"
	Rock      Label = "Rock"
	Pop       Label = "Pop"
)

// Rule pairs a predicate over the feature vector with the label it assigns
type Rule struct {
	Name  string
	Label Label
	Match func(v features.Vector) bool
}

// Rules is the decision list in evaluation order. Thresholds are empirical
// and must stay exactly as written, including strict versus inclusive bounds.
var Rules = []Rule{
	{
		Name:  "classical",
		Label: Classical,
		Match: func(v features.Vector) bool {
			return v.Centroid < 1500 && v.Rolloff < 3000
		},
	},
	{
		Name:  "jazz",
		Label: Jazz,
		Match: func(v features.Vector) bool {
			return v.Centroid >= 1500 && v.Centroid < 2500 && v.Contrast < 25
		},
	},
	{
		Name:  "phonk",
		Label: Phonk,
		Match: func(v features.Vector) bool {
			return v.Centroid >= 2200 && v.Centroid < 4200 &&
				v.Rolloff >= 4000 && v.Rolloff < 7000 &&
				v.Contrast < 22 && v.Bandwidth > 1500
		},
	},
	{
		Name:  "hiphop",
		Label: HipHop,
		Match: func(v features.Vector) bool {
			return v.Centroid >= 3500 && v.Contrast >= 25 && v.Rolloff >= 5000
		},
	},
	{
		Name:  "rock",
		Label: Rock,
		Match: func(v features.Vector) bool {
			return v.Centroid >= 5200 || v.Rolloff > 7000
		},
	},
	{
		Name:  "pop",
		Label: Pop,
		Match: func(v features.Vector) bool {
			return v.Centroid >= 2500 && v.Centroid < 3800 && v.Rolloff < 6000
		},
	},
}

// Fallback is reported by Explain when no rule matches
var Fallback = Rule{
	Name:  "fallback",
	Label: Pop,
	Match: func(features.Vector) bool { return true },
}

// Classify returns the label of the first matching rule, or Pop
func Classify(v features.Vector) Label {
	label, _ := Explain(v)
	return label
}

// Explain returns the label together with the rule that produced it
func Explain(v features.Vector) (Label, Rule) {
	for _, rule := range Rules {
		if rule.Match(v) {
			return rule.Label, rule
		}
	}
	return Fallback.Label, Fallback
}

// Labels lists every label Classify can return
func Labels() []Label {
	return []Label{Classical, Jazz, Phonk, HipHop, Rock, Pop}
}

// Valid reports whether l is one of Labels
func (l Label) Valid() bool {
	switch l {
	case Classical, Jazz, Phonk, HipHop, Rock, Pop:
		return true
	}
	return false
}

func (l Label) String() string {
	return string(l)
}
