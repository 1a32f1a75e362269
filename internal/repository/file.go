package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"portfolio-messageboard/backend/internal/models"
	"portfolio-messageboard/backend/pkg/logger"
	"portfolio-messageboard/backend/pkg/metrics"
)

// FileRepository keeps messages in a single pretty-printed JSON array on disk.
// It is a best-effort store: an unreadable document is treated as empty.
//
// Read-modify-write sequences are serialized by a mutex and every write goes
// through a temporary file renamed over the document, so concurrent adds in
// one process do not lose messages and a crash never leaves a half-written file.
type FileRepository struct {
	dir  string
	path string
	log  *logger.Logger

	mu sync.Mutex
}

var _ MessageRepository = (*FileRepository)(nil)

// NewFileRepository opens the document at dir/file, creating the directory and
// an empty list when they are missing.
func NewFileRepository(dir, file string, log *logger.Logger) (*FileRepository, error) {
	if log == nil {
		log = logger.Nop()
	}
	r := &FileRepository{
		dir:  dir,
		path: filepath.Join(dir, file),
		log:  log.WithComponent("file-store"),
	}
	if err := r.ensureStoreExists(); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the location of the JSON document
func (r *FileRepository) Path() string {
	return r.path
}

// Name implements MessageRepository
func (r *FileRepository) Name() string {
	return "file"
}

func (r *FileRepository) ensureStoreExists() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create store directory: %w", ErrStorageIO, err)
	}

	_, err := os.Stat(r.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: stat store document: %w", ErrStorageIO, err)
	}

	r.log.Info("Creating empty message document", "path", r.path)
	return r.writeAllLocked([]models.Message{})
}

// ReadAll returns the stored messages in insertion order
func (r *FileRepository) ReadAll() ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readAllLocked()
}

// WriteAll replaces the whole document with msgs
func (r *FileRepository) WriteAll(msgs []models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeAllLocked(msgs)
}

// Add appends msg. The caller assigns the id.
func (r *FileRepository) Add(msg models.Message) (models.Message, error) {
	if msg.ID == "" {
		return models.Message{}, ErrMissingID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	msgs, err := r.readAllLocked()
	if err != nil {
		return models.Message{}, err
	}
	msgs = append(msgs, msg)
	if err := r.writeAllLocked(msgs); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListAll implements MessageRepository
func (r *FileRepository) ListAll(_ context.Context) ([]models.Message, error) {
	msgs, err := r.ReadAll()
	metrics.ObserveStore(r.Name(), "list", err)
	return msgs, err
}

// Create implements MessageRepository
func (r *FileRepository) Create(_ context.Context, msg models.Message) (models.Message, error) {
	created, err := r.Add(msg)
	metrics.ObserveStore(r.Name(), "create", err)
	return created, err
}

// GetByID scans the document for id
func (r *FileRepository) GetByID(_ context.Context, id string) (*models.Message, error) {
	msgs, err := r.ReadAll()
	metrics.ObserveStore(r.Name(), "get", err)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		if msgs[i].ID == id {
			found := msgs[i]
			return &found, nil
		}
	}
	return nil, nil
}

// DeleteByID removes the first message with id. The document is left untouched
// when nothing matches.
func (r *FileRepository) DeleteByID(_ context.Context, id string) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs, err := r.readAllLocked()
	if err != nil {
		metrics.ObserveStore(r.Name(), "delete", err)
		return nil, err
	}

	for i := range msgs {
		if msgs[i].ID != id {
			continue
		}
		removed := msgs[i]
		rest := append(msgs[:i:i], msgs[i+1:]...)
		err := r.writeAllLocked(rest)
		metrics.ObserveStore(r.Name(), "delete", err)
		if err != nil {
			return nil, err
		}
		return &removed, nil
	}

	metrics.ObserveStore(r.Name(), "delete", nil)
	return nil, nil
}

// Ping checks that the document directory is still writable
func (r *FileRepository) Ping(_ context.Context) error {
	f, err := os.CreateTemp(r.dir, ".ping-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageIO, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (r *FileRepository) readAllLocked() ([]models.Message, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.Message{}, nil
		}
		return nil, fmt.Errorf("%w: read store document: %w", ErrStorageIO, err)
	}

	var msgs []models.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		metrics.StoreCorruptions.Inc()
		r.log.Warn("Message document is corrupted, treating it as empty",
			"path", r.path,
			"error", err.Error(),
		)
		return []models.Message{}, nil
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

func (r *FileRepository) writeAllLocked(msgs []models.Message) error {
	if msgs == nil {
		msgs = []models.Message{}
	}
	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode store document: %w", ErrStorageIO, err)
	}

	tmp, err := os.CreateTemp(r.dir, ".messages-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp document: %w", ErrStorageIO, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write temp document: %w", ErrStorageIO, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: sync temp document: %w", ErrStorageIO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close temp document: %w", ErrStorageIO, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: chmod temp document: %w", ErrStorageIO, err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replace store document: %w", ErrStorageIO, err)
	}
	return nil
}
