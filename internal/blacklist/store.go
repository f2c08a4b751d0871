package blacklist

import (
	"context"

	"walletScope/internal/model"
)

// DocumentVersion is written into the metadata of persisted documents.
const DocumentVersion = "2.0"

// Store persists blacklist entries keyed by canonical wallet address.
// Upsert replaces the stored entry wholesale; callers that want to keep
// fields from an earlier entry read it first and carry them over.
type Store interface {
	Get(ctx context.Context, address string) (model.BlacklistEntry, bool, error)
	Upsert(ctx context.Context, entry model.BlacklistEntry) error
	List(ctx context.Context) ([]model.BlacklistEntry, error)
}
