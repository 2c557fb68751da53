// Package model contains domain models passed between layers.
package model

import (
	"strings"
)

// Rating is a competitor's classification letter, A (strongest) to U (unrated).
type Rating string

// Known rating letters.
const (
	RatingA Rating = "A"
	RatingB Rating = "B"
	RatingC Rating = "C"
	RatingD Rating = "D"
	RatingE Rating = "E"
	RatingU Rating = "U"
)

var priorByRating = map[Rating]float64{
	RatingA: 32,
	RatingB: 16,
	RatingC: 8,
	RatingD: 4,
	RatingE: 2,
	RatingU: 1,
}

// ParseRating reads the letter from a classification string such as "A24",
// "c" or "U/U". Anything unrecognised is unrated.
func ParseRating(s string) Rating {
	s = strings.TrimSpace(s)
	if s == "" {
		return RatingU
	}
	r := Rating(strings.ToUpper(s[:1]))
	if _, ok := priorByRating[r]; !ok {
		return RatingU
	}
	return r
}

// Prior returns the seed strength for the letter on the doubling scale.
func (r Rating) Prior() float64 {
	if p, ok := priorByRating[r]; ok {
		return p
	}
	return priorByRating[RatingU]
}

// Rank orders letters from 0 (A) to 5 (U).
func (r Rating) Rank() int {
	switch r {
	case RatingA:
		return 0
	case RatingB:
		return 1
	case RatingC:
		return 2
	case RatingD:
		return 3
	case RatingE:
		return 4
	default:
		return 5
	}
}

// Entrant is a competitor as registered: identity plus the raw
// classification it was entered with.
type Entrant struct {
	Name   string `json:"name" yaml:"name" validate:"required"`
	Club   string `json:"club,omitempty" yaml:"club,omitempty"`
	Rating string `json:"rating,omitempty" yaml:"rating,omitempty"`
}

// Letter returns the parsed rating letter.
func (e Entrant) Letter() Rating { return ParseRating(e.Rating) }

// NormalizeName trims surrounding whitespace from a competitor name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// Standing is one row of the ranking table.
type Standing struct {
	Rank           int     `json:"rank,omitempty"`
	Name           string  `json:"name"`
	Club           string  `json:"club,omitempty"`
	Rating         Rating  `json:"rating"`
	Prior          float64 `json:"prior_strength"`
	Strength       float64 `json:"strength"`
	WinProb        float64 `json:"win_prob"`
	FieldShare     float64 `json:"field_share"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	TouchesFor     int     `json:"touches_for"`
	TouchesAgainst int     `json:"touches_against"`
	Differential   int     `json:"differential"`
	HasBouts       bool    `json:"has_bouts"`
}
