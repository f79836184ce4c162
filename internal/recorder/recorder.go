package recorder

import (
	"context"
	"log"

	"LotteryHub/internal/model"
)

// DrawResult is one settled draw as stored for analysis.
type DrawResult struct {
	DrawID     uint64
	Kind       string
	Status     string
	Asset      string
	PrizePool  string
	Sold       uint64
	Winners    []string
	Executor   string
	Randomness string
	SettledAt  int64
}

// Recorder persists the event history for analysis.
type Recorder interface {
	RecordEvents(events []model.Event) error
	RecordDrawResult(d *model.Draw) error
	Events(drawID uint64) ([]model.Event, error)
	Close() error
}

// Sink feeds committed platform events into a Recorder. Settled draws are looked up
// through lookup so their final state is stored alongside the events.
type Sink struct {
	Recorder Recorder
	Lookup   func(ctx context.Context, drawID uint64) (*model.Draw, error)
}

// Publish records the batch and the result of every draw it settles.
func (s *Sink) Publish(ctx context.Context, events []model.Event) {
	if err := s.Recorder.RecordEvents(events); err != nil {
		log.Printf("[ERROR] record events: %v", err)
	}
	if s.Lookup == nil {
		return
	}
	for _, e := range events {
		if e.Type != model.EventDrawExecuted && e.Type != model.EventDrawCancelled {
			continue
		}
		d, err := s.Lookup(ctx, e.DrawID)
		if err != nil {
			log.Printf("[ERROR] lookup draw %d: %v", e.DrawID, err)
			continue
		}
		if err := s.Recorder.RecordDrawResult(d); err != nil {
			log.Printf("[ERROR] record draw result: %v", err)
		}
	}
}
