// Package docstore provides ProfileRepository implementations backed by the
// local filesystem and by PostgreSQL. Both guarantee atomic read-modify-write
// per document: concurrent updates to the same document never lose a write,
// and a crash mid-write never corrupts the previous valid state.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/talentforge/insights/internal/core"
	"github.com/talentforge/insights/internal/data"
	"github.com/talentforge/insights/internal/domain/model"
	apperrors "github.com/talentforge/insights/internal/errors"
)

// FileStore persists one JSON document per profile under a data directory.
// Writes go to a temp file in the same directory followed by an atomic
// rename, so readers never observe a half-written document. A per-id mutex
// serializes read-modify-write cycles within the process.
type FileStore struct {
	dir    string
	logger *slog.Logger
	time   data.TimeProvider

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ core.ProfileRepository = (*FileStore)(nil)

// FileStoreOptions groups dependencies for NewFileStore.
type FileStoreOptions struct {
	Dir    string            // Required: data directory, created if missing
	Logger *slog.Logger      // Optional: structured logger
	Time   data.TimeProvider // Optional: clock override for tests
}

// NewFileStore constructs a FileStore, creating the data directory if needed.
func NewFileStore(opts FileStoreOptions) (*FileStore, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("data directory is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	tp := opts.Time
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "file_docstore")
	}

	return &FileStore{
		dir:    opts.Dir,
		logger: logger,
		time:   tp,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// lockFor returns the mutex serializing access to one document id.
func (s *FileStore) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *FileStore) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", apperrors.Validationf("invalid profile id %q", id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// Create persists a new document. Fails with Conflict if the id exists.
func (s *FileStore) Create(ctx context.Context, doc *model.ProfileDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(doc.ID)
	if err != nil {
		return err
	}

	lock := s.lockFor(doc.ID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(path); err == nil {
		return apperrors.Conflictf("profile %s already exists", doc.ID)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat profile %s: %w", doc.ID, err)
	}

	now := s.time.Now().UTC()
	doc.Version = 1
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if err := s.writeAtomic(path, doc); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "profile created", "id", doc.ID, "path", path)
	}
	return nil
}

// GetByID loads a document. Fails with NotFound if the id is unknown.
func (s *FileStore) GetByID(ctx context.Context, id string) (*model.ProfileDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	return s.read(path, id)
}

func (s *FileStore) read(path, id string) (*model.ProfileDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NotFoundf("profile %s not found", id)
		}
		return nil, fmt.Errorf("read profile %s: %w", id, err)
	}

	var doc model.ProfileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", id, err)
	}
	return &doc, nil
}

// Update atomically applies mutate to the current document and persists the
// result. The per-id lock serializes concurrent updates so no write is lost.
func (s *FileStore) Update(
	ctx context.Context,
	id string,
	mutate func(doc *model.ProfileDocument) error,
) (*model.ProfileDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.read(path, id)
	if err != nil {
		return nil, err
	}

	if err := mutate(doc); err != nil {
		return nil, err
	}

	doc.Version++
	doc.UpdatedAt = s.time.Now().UTC()

	if err := s.writeAtomic(path, doc); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "profile updated", "id", id, "version", doc.Version)
	}
	return doc, nil
}

// Delete removes a document. Fails with NotFound if the id is unknown.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(id)
	if err != nil {
		return err
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperrors.NotFoundf("profile %s not found", id)
		}
		return fmt.Errorf("delete profile %s: %w", id, err)
	}
	return nil
}

// List returns stored documents ordered by creation time descending.
func (s *FileStore) List(ctx context.Context, limit, offset int) ([]*model.ProfileDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	docs := make([]*model.ProfileDocument, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		doc, err := s.read(filepath.Join(s.dir, name), id)
		if err != nil {
			// Skip unreadable entries rather than failing the whole listing.
			if s.logger != nil {
				s.logger.WarnContext(ctx, "skipping unreadable profile", "file", name, "error", err)
			}
			continue
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	if offset > len(docs) {
		offset = len(docs)
	}
	docs = docs[offset:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs, nil
}

// writeAtomic serializes the document to a temp file in the target directory
// and renames it over the destination. Rename within one directory is atomic
// on POSIX filesystems, so the previous valid version survives any failed or
// interrupted write.
func (s *FileStore) writeAtomic(path string, doc *model.ProfileDocument) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", doc.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace profile %s: %w", doc.ID, err)
	}
	return nil
}
