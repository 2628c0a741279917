package storage

import (
	"context"
	"errors"

	"htmsim/internal/model"
)

// Store defines persistence operations for recordings and simulation runs.
type Store interface {
	Init(ctx context.Context) error
	SaveRecording(ctx context.Context, recording model.Recording) error
	GetRecording(ctx context.Context, name string) (model.Recording, bool, error)
	ListRecordings(ctx context.Context) ([]string, error)
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveTickHistory(ctx context.Context, runID string, history []model.TickStats) error
	GetTickHistory(ctx context.Context, runID string) ([]model.TickStats, bool, error)
}

var ErrNotInitialized = errors.New("store is not initialized")
