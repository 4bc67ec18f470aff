package journal

import (
	"context"

	"github.com/dmitrijs2005/mediagate/internal/client/models"
)

// Repository stores journal records.
type Repository interface {
	// Insert stores rec. Empty ID and zero CreatedAt are filled in.
	Insert(ctx context.Context, rec *models.JournalRecord) error

	// List returns the newest records first, at most limit of them.
	// A non-positive limit returns every record.
	List(ctx context.Context, limit int) ([]models.JournalRecord, error)

	// CountByState returns how many records ended in each state.
	CountByState(ctx context.Context) (map[models.ScanState]int, error)
}
