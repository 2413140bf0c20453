package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "mental-triage/internal/common/errors"
	"mental-triage/internal/common/logger"
	"mental-triage/internal/models"
)

const conversationsSchema = `
	CREATE TABLE IF NOT EXISTS conversations (
		id         UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		version    TEXT NOT NULL,
		record     JSONB NOT NULL
	)`

// PostgresStore keeps each record as a jsonb document keyed by conversation id.
type PostgresStore struct {
	db     *sql.DB
	now    func() time.Time
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		now:    time.Now,
		logger: log.WithFields(map[string]interface{}{"component": "postgres-store"}),
	}
}

// EnsureSchema creates the conversations table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, conversationsSchema); err != nil {
		return apperrors.NewStorageError("migrate", err)
	}
	return nil
}

// Save upserts the whole record.
func (s *PostgresStore) Save(ctx context.Context, record *models.ConversationRecord) (id string, err error) {
	ctx, done := observe(ctx, DriverPostgres, "save")
	defer func() { done(err) }()

	if err := prepare(record, s.now()); err != nil {
		return "", err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return "", apperrors.NewStorageError("save", err)
	}
	createdAt := record.Metadata.Time()
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, created_at, version, record)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET created_at = EXCLUDED.created_at, version = EXCLUDED.version, record = EXCLUDED.record`,
		record.Metadata.ConversationID,
		createdAt,
		record.Metadata.Version,
		data,
	)
	if err != nil {
		return "", apperrors.NewStorageError("save", err)
	}

	s.logger.Debug("conversation saved", map[string]interface{}{"conversationId": record.Metadata.ConversationID})
	return record.Metadata.ConversationID, nil
}

func (s *PostgresStore) Load(ctx context.Context, id string) (record *models.ConversationRecord, err error) {
	ctx, done := observe(ctx, DriverPostgres, "load")
	defer func() { done(err) }()

	canonical, ok := canonicalID(id)
	if !ok {
		return nil, apperrors.NewConversationNotFoundError(id)
	}
	id = canonical

	var data []byte
	err = s.db.QueryRowContext(ctx, `SELECT record FROM conversations WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewConversationNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("load", err)
	}

	record = &models.ConversationRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, apperrors.NewStorageError("load", fmt.Errorf("decode %s: %w", id, err))
	}
	return record, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) (items []models.Metadata, err error) {
	ctx, done := observe(ctx, DriverPostgres, "list")
	defer func() { done(err) }()

	query := `SELECT record->'metadata' FROM conversations ORDER BY created_at DESC, id`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageError("list", err)
	}
	defer rows.Close()

	items = []models.Metadata{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, apperrors.NewStorageError("list", err)
		}
		var md models.Metadata
		if err := json.Unmarshal(data, &md); err != nil {
			s.logger.Warn("skipping malformed conversation row", map[string]interface{}{"error": err.Error()})
			continue
		}
		items = append(items, md)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("list", err)
	}
	return items, nil
}
