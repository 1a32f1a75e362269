// Package repository holds the interchangeable message backends. Every variant
// offers the same capability set; which one serves a route is decided once at
// startup from configuration.
package repository

import (
	"context"
	"errors"

	"portfolio-messageboard/backend/internal/models"
)

var (
	// ErrBackendUnavailable wraps every remote failure that is not a missing credential
	ErrBackendUnavailable = errors.New("message backend unavailable")
	// ErrStorageIO wraps local or redis storage failures
	ErrStorageIO = errors.New("message storage I/O failure")
	// ErrMissingID is returned when a store that does not assign ids receives a message without one
	ErrMissingID = errors.New("message id must be set before it is stored")
)

// MessageRepository is implemented by every message backend
type MessageRepository interface {
	// Name identifies the backend in logs, metrics and health output
	Name() string
	// ListAll returns every stored message. Order is backend specific.
	ListAll(ctx context.Context) ([]models.Message, error)
	// Create persists msg and returns it with the final id and timestamp
	Create(ctx context.Context, msg models.Message) (models.Message, error)
	// GetByID returns nil, nil when no message has the id
	GetByID(ctx context.Context, id string) (*models.Message, error)
	// DeleteByID returns the removed message, or nil, nil when no message has the id
	DeleteByID(ctx context.Context, id string) (*models.Message, error)
	// Ping reports whether the backend can currently serve requests
	Ping(ctx context.Context) error
}
