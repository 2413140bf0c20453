package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	apperrors "mental-triage/internal/common/errors"
	"mental-triage/internal/common/logger"
	"mental-triage/internal/models"
)

const fileExt = ".json"

// FileStore keeps one JSON document per conversation in a directory.
type FileStore struct {
	dir    string
	mu     sync.Mutex
	now    func() time.Time
	logger logger.Logger
}

func NewFileStore(dir string, log logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation dir %s: %w", dir, err)
	}
	return &FileStore{
		dir:    dir,
		now:    time.Now,
		logger: log.WithFields(map[string]interface{}{"component": "file-store"}),
	}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

// Save writes to a temp file in the same directory and renames it into place.
func (s *FileStore) Save(ctx context.Context, record *models.ConversationRecord) (id string, err error) {
	ctx, done := observe(ctx, DriverFile, "save")
	defer func() { done(err) }()

	if err := ctx.Err(); err != nil {
		return "", apperrors.NewStorageError("save", err)
	}
	if err := prepare(record, s.now()); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", apperrors.NewStorageError("save", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".conversation-*.tmp")
	if err != nil {
		return "", apperrors.NewStorageError("save", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", apperrors.NewStorageError("save", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", apperrors.NewStorageError("save", err)
	}
	if err = tmp.Close(); err != nil {
		return "", apperrors.NewStorageError("save", err)
	}
	if err = os.Rename(tmpName, s.path(record.Metadata.ConversationID)); err != nil {
		return "", apperrors.NewStorageError("save", err)
	}

	s.logger.Debug("conversation saved", map[string]interface{}{"conversationId": record.Metadata.ConversationID})
	return record.Metadata.ConversationID, nil
}

func (s *FileStore) Load(ctx context.Context, id string) (record *models.ConversationRecord, err error) {
	ctx, done := observe(ctx, DriverFile, "load")
	defer func() { done(err) }()

	canonical, ok := canonicalID(id)
	if !ok {
		return nil, apperrors.NewConversationNotFoundError(id)
	}
	id = canonical
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStorageError("load", err)
	}

	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
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

// List reads the metadata of every record. Unreadable files are skipped.
func (s *FileStore) List(ctx context.Context, limit int) (items []models.Metadata, err error) {
	ctx, done := observe(ctx, DriverFile, "list")
	defer func() { done(err) }()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apperrors.NewStorageError("list", err)
	}

	items = make([]models.Metadata, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.NewStorageError("list", err)
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			s.logger.Warn("skipping unreadable conversation file", map[string]interface{}{"file": name, "error": err.Error()})
			continue
		}
		var head struct {
			Metadata models.Metadata `json:"metadata"`
		}
		if err := json.Unmarshal(data, &head); err != nil || head.Metadata.ConversationID == "" {
			s.logger.Warn("skipping malformed conversation file", map[string]interface{}{"file": name})
			continue
		}
		items = append(items, head.Metadata)
	}

	sortNewestFirst(items)
	return truncate(items, limit), nil
}
