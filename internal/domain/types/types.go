// Package types contains the request and response shapes shared by the HTTP
// API and the fencectl client.
package types

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
)

var validate *validator.Validate

func init() { //nolint:gochecknoinits // validator setup
	validate = validator.New()
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// Validate checks v against its struct tags.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%v: %w", err, model.ErrInvalidObservation)
	}
	return nil
}

// CreateEventRequest opens a new event.
type CreateEventRequest struct {
	Name string `json:"name" yaml:"name" validate:"notblank,max=200"`
}

// RegisterRequest adds competitors to an event's roster.
type RegisterRequest struct {
	Competitors []model.Entrant `json:"competitors" yaml:"competitors" validate:"required,min=1,dive"`
}

// BracketRequest fixes the seed order of an event's bracket, seed 1 first.
type BracketRequest struct {
	Seeds []string `json:"seeds" yaml:"seeds" validate:"required"`
}

// EventSummary describes an event and the size of its history.
type EventSummary struct {
	model.EventInfo
	Competitors  int    `json:"competitors"`
	Observations int    `json:"observations"`
	Sequence     uint64 `json:"sequence"`
}

// StandingsResponse is the ranking table of one event.
type StandingsResponse struct {
	Event      string           `json:"event"`
	Sequence   uint64           `json:"sequence"`
	Iterations int              `json:"iterations"`
	Converged  bool             `json:"converged"`
	FieldMean  float64          `json:"field_mean"`
	Standings  []model.Standing `json:"standings"`
}

// TrajectoryResponse lists trajectory snapshots, or one competitor's series
// when Competitor is set.
type TrajectoryResponse struct {
	Event      string                     `json:"event"`
	Competitor string                     `json:"competitor,omitempty"`
	Snapshots  []model.TrajectorySnapshot `json:"snapshots,omitempty"`
	Series     []model.SeriesPoint        `json:"series,omitempty"`
}

// BracketResponse is the first-round draw.
type BracketResponse struct {
	Event    string          `json:"event"`
	State    string          `json:"state"`
	Seeds    []string        `json:"seeds"`
	Matchups []model.Matchup `json:"matchups"`
}

// BoutsResponse lists recorded bouts, newest first.
type BoutsResponse struct {
	Event string              `json:"event"`
	Bouts []model.Observation `json:"bouts"`
}

// Stream message types.
const (
	StreamHello = "hello"
	StreamRefit = "refit"
)

// StreamMessage is pushed to live subscribers after every refit.
type StreamMessage struct {
	Type      string                    `json:"type"`
	Event     string                    `json:"event"`
	Sequence  uint64                    `json:"sequence"`
	Snapshot  *model.TrajectorySnapshot `json:"snapshot,omitempty"`
	Standings []model.Standing          `json:"standings"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AckResponse acknowledges a write.
type AckResponse struct {
	Status   string `json:"status"`
	Sequence uint64 `json:"sequence"`
}
