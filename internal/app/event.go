package service

import (
	"sync/atomic"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/bracket"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/engine"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/ingest"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/predict"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/types"
)

// Event is one tournament event: an engine and the components built on it.
type Event struct {
	info      model.EventInfo
	engine    *engine.Engine
	ingest    *ingest.Adapter
	predictor *predict.Predictor
	bracket   *bracket.Simulator
	hub       *hub

	// closed is set once the event is deleted; nothing more is streamed or
	// stored for it.
	closed atomic.Bool
}

// Info returns the event's identity.
func (e *Event) Info() model.EventInfo { return e.info }

// Engine returns the event's rating engine.
func (e *Event) Engine() *engine.Engine { return e.engine }

// Ingest returns the adapter through which results enter the engine.
func (e *Event) Ingest() *ingest.Adapter { return e.ingest }

// Predictor returns the event's pairwise predictor.
func (e *Event) Predictor() *predict.Predictor { return e.predictor }

// Bracket returns the event's bracket simulator.
func (e *Event) Bracket() *bracket.Simulator { return e.bracket }

// Summary describes the event and the size of its history.
func (e *Event) Summary() types.EventSummary {
	v := e.engine.View()
	return types.EventSummary{
		EventInfo:    e.info,
		Competitors:  v.Len(),
		Observations: len(v.Observations()),
		Sequence:     v.Sequence(),
	}
}

// refitMessage builds the stream message for v.
func (e *Event) refitMessage(v *engine.View) types.StreamMessage {
	msg := types.StreamMessage{
		Type:      types.StreamRefit,
		Event:     e.info.ID,
		Sequence:  v.Sequence(),
		Standings: v.Standings(),
	}
	for snap := range v.Trajectory() {
		s := snap
		msg.Snapshot = &s
	}
	return msg
}
