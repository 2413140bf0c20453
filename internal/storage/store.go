// Package storage persists finished conversation records.
package storage

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	apperrors "mental-triage/internal/common/errors"
	"mental-triage/internal/common/metrics"
	"mental-triage/internal/common/observability"
	"mental-triage/internal/models"
)

// Driver names used in metrics labels.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Store is the conversation persistence contract.
type Store interface {
	// Save writes the whole record and returns its id. A record without an id
	// gets a fresh UUID v4.
	Save(ctx context.Context, record *models.ConversationRecord) (string, error)
	Load(ctx context.Context, id string) (*models.ConversationRecord, error)
	// List returns metadata newest timestamp first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]models.Metadata, error)
}

// ErrNotFound matches, via errors.Is, the error returned for an unknown id.
var ErrNotFound = apperrors.ErrConversationNotFound

// observe opens a span for one store operation. The returned func records
// the outcome on the span and in the store metrics.
func observe(ctx context.Context, driver, operation string) (context.Context, func(error)) {
	ctx, span := observability.StartSpan(ctx, "storage."+operation, attribute.String("db.system", driver))
	return ctx, func(err error) {
		metrics.ObserveStore(driver, operation, err)
		observability.EndSpan(span, err)
	}
}

// prepare stamps id, timestamp and version on the record in place.
func prepare(record *models.ConversationRecord, now time.Time) error {
	if record == nil {
		return apperrors.NewInvalidInputError("conversation record is required")
	}
	md := &record.Metadata
	if md.ConversationID == "" {
		md.ConversationID = uuid.NewString()
	} else if id, ok := canonicalID(md.ConversationID); ok {
		md.ConversationID = id
	} else {
		return apperrors.NewInvalidInputError("invalid conversation id")
	}
	if md.Timestamp == "" {
		md.Timestamp = now.UTC().Format(time.RFC3339Nano)
	}
	if md.Version == "" {
		md.Version = models.SchemaVersion
	}
	return nil
}

// canonicalID accepts hyphenated UUID strings in either case and returns the
// lower-case form, which keeps ids safe to use as file names and keys.
func canonicalID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	lower := strings.ToLower(id)
	if parsed.String() != lower {
		return "", false
	}
	return lower, true
}

// sortNewestFirst orders by timestamp descending, then id for stability.
func sortNewestFirst(items []models.Metadata) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := items[i].Time(), items[j].Time()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return items[i].ConversationID < items[j].ConversationID
	})
}

func truncate(items []models.Metadata, limit int) []models.Metadata {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
