// Package storage defines the persistence interface for training runs and chat exchanges.
package storage

import (
	"context"

	"github.com/hyperjump/intentbot/internal/models"
)

// Storage defines training-run and exchange persistence operations.
type Storage interface {
	// Training runs
	RecordTrainingRun(ctx context.Context, run *models.TrainingRun) error
	ListTrainingRuns(ctx context.Context, offset, limit int) ([]*models.TrainingRun, error)
	CountTrainingRuns(ctx context.Context) (int64, error)

	// Exchanges
	RecordExchange(ctx context.Context, ex *models.Exchange) error
	ListExchanges(ctx context.Context, offset, limit int) ([]*models.Exchange, error)
	CountExchanges(ctx context.Context) (int64, error)

	Close() error
}
