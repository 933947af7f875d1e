// Package store defines the write-side contract for persisting extracted
// records. Record lifecycle beyond the initial write (acknowledgement,
// approval, retention) belongs to the surrounding orchestration layer.
package store

import (
	"context"

	"github.com/reglens/reglens/internal/extraction"
)

// RecordStore accepts validated extracted records for persistence.
type RecordStore interface {
	SaveGaps(ctx context.Context, gaps []extraction.Gap) error
	SaveAmendments(ctx context.Context, amendments []extraction.Amendment) error
}
