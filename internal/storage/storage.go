package storage

import (
	"context"

	"github.com/nbekov/farmbot/internal/storage/models"
)

// Storage persists confirmed results and score history.
type Storage interface {
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	ListTransactions(ctx context.Context, walletIndex int, limit, offset int) ([]*models.Transaction, error)
	SaveScoreSample(ctx context.Context, sample *models.ScoreSample) error
	RunMigrations() error
}
