package repository

import (
	"context"
	"errors"
	"fmt"

	"portfolio-messageboard/backend/internal/github"
	"portfolio-messageboard/backend/internal/models"
	"portfolio-messageboard/backend/internal/normalize"
	"portfolio-messageboard/backend/pkg/metrics"
)

// CommentClient is the part of the GitHub client the remote backend needs
type CommentClient interface {
	ListComments(ctx context.Context) ([]github.RawRecord, error)
	CreateComment(ctx context.Context, body string) (github.RawRecord, error)
	DeleteComment(ctx context.Context, id string) (bool, error)
	GetComment(ctx context.Context, id string) (github.RawRecord, bool, error)
	HasCredential() bool
	Ping(ctx context.Context) error
}

// CommentRepository stores messages as comments on the fixed remote thread
type CommentRepository struct {
	client     CommentClient
	normalizer *normalize.Normalizer
}

var _ MessageRepository = (*CommentRepository)(nil)

// NewCommentRepository creates the remote backend
func NewCommentRepository(client CommentClient, normalizer *normalize.Normalizer) *CommentRepository {
	if normalizer == nil {
		normalizer = normalize.New(nil)
	}
	return &CommentRepository{client: client, normalizer: normalizer}
}

// Name implements MessageRepository
func (r *CommentRepository) Name() string {
	return "github"
}

// ListAll returns the normalized thread, newest first
func (r *CommentRepository) ListAll(ctx context.Context) ([]models.Message, error) {
	raws, err := r.client.ListComments(ctx)
	metrics.ObserveStore(r.Name(), "list", err)
	if err != nil {
		return nil, remoteError(err)
	}
	return r.normalizer.NormalizeAll(raws), nil
}

// Create serializes msg into a new comment. The remote id and creation time replace
// whatever the caller set.
func (r *CommentRepository) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	body, err := normalize.EncodeBody(msg.Record())
	if err != nil {
		return models.Message{}, fmt.Errorf("encode message: %w", err)
	}

	raw, err := r.client.CreateComment(ctx, body)
	metrics.ObserveStore(r.Name(), "create", err)
	if err != nil {
		return models.Message{}, remoteError(err)
	}

	msg.ID = raw.ID
	if raw.CreatedAt != "" {
		msg.CreatedAt = raw.CreatedAt
	}
	msg.IsPublic = true
	return msg, nil
}

// GetByID fetches and normalizes one comment. Comments without content count as absent.
func (r *CommentRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	raw, found, err := r.client.GetComment(ctx, id)
	metrics.ObserveStore(r.Name(), "get", err)
	if err != nil {
		return nil, remoteError(err)
	}
	if !found {
		return nil, nil
	}

	msg, path := r.normalizer.Normalize(raw)
	if path == normalize.PathDiscarded {
		return nil, nil
	}
	return &msg, nil
}

// DeleteByID removes one comment and returns it as it was stored. Comments the
// list view discards are still removable. A comment that is already gone is
// reported as nil, nil.
func (r *CommentRepository) DeleteByID(ctx context.Context, id string) (*models.Message, error) {
	if !r.client.HasCredential() {
		metrics.ObserveStore(r.Name(), "delete", github.ErrMissingCredential)
		return nil, github.ErrMissingCredential
	}

	raw, found, err := r.client.GetComment(ctx, id)
	if err != nil {
		metrics.ObserveStore(r.Name(), "delete", err)
		return nil, remoteError(err)
	}
	if !found {
		return nil, nil
	}
	msg, _ := r.normalizer.Normalize(raw)

	_, err = r.client.DeleteComment(ctx, id)
	metrics.ObserveStore(r.Name(), "delete", err)
	if err != nil {
		if github.IsNotFound(err) {
			return nil, nil
		}
		return nil, remoteError(err)
	}
	return &msg, nil
}

// Ping implements MessageRepository
func (r *CommentRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx); err != nil {
		return remoteError(err)
	}
	return nil
}

func remoteError(err error) error {
	if errors.Is(err, github.ErrMissingCredential) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
}
