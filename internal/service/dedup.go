package service

import (
	"context"
	"time"

	"ticketflow/internal/constants"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// DedupStore is the durable side of the dedup filter.
type DedupStore interface {
	MarkProcessed(ctx context.Context, transportID string) (alreadySeen bool, err error)
}

// DedupFilter guarantees each transport message id is handed to the pipeline
// at most once. An in-memory TTL cache answers the hot path; the durable
// store covers restarts. Store failures fail open: the message is treated as
// unseen and the duplicate risk lands on downstream idempotency.
type DedupFilter struct {
	store  DedupStore
	recent *cache.Cache
	logger *logrus.Logger
}

func NewDedupFilter(store DedupStore, logger *logrus.Logger) *DedupFilter {
	return &DedupFilter{
		store:  store,
		recent: cache.New(constants.DedupCacheTTLMinutes*time.Minute, constants.DedupCacheSweepMinutes*time.Minute),
		logger: logger,
	}
}

// Seen records the id on first sight and reports whether it was already
// known.
func (f *DedupFilter) Seen(ctx context.Context, transportID string) bool {
	if transportID == "" {
		return false
	}

	// Add fails if the key exists, which is exactly the duplicate signal.
	if err := f.recent.Add(transportID, struct{}{}, cache.DefaultExpiration); err != nil {
		return true
	}

	alreadySeen, err := f.store.MarkProcessed(ctx, transportID)
	if err != nil {
		f.logger.WithError(err).WithField("message_id", transportID).
			Warn("Dedup store unavailable, failing open")
		return false
	}
	return alreadySeen
}
