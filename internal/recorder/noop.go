package recorder

import "LotteryHub/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordEvents(_ []model.Event) error     { return nil }
func (n *NoopRecorder) RecordDrawResult(_ *model.Draw) error   { return nil }
func (n *NoopRecorder) Events(_ uint64) ([]model.Event, error) { return nil, nil }
func (n *NoopRecorder) Close() error                           { return nil }
