package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"portfolio-messageboard/backend/internal/github"
	"portfolio-messageboard/backend/internal/models"
	"portfolio-messageboard/backend/internal/normalize"
	"portfolio-messageboard/backend/internal/repository"
	apperrors "portfolio-messageboard/backend/pkg/errors"
	"portfolio-messageboard/backend/pkg/logger"
)

// TimestampLayout is the creation timestamp format for locally assigned messages
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// DefaultMaxContentLength caps submitted message content, in characters
const DefaultMaxContentLength = 2000

// MessageService handles message-board operations. Public listing and
// submission go to the primary backend; admin operations go to the admin backend.
type MessageService struct {
	primary repository.MessageRepository
	admin   repository.MessageRepository

	maxContentLength int
	log              *logger.Logger

	now    func() time.Time
	idMu   sync.Mutex
	lastID int64
}

// NewMessageService creates a new message service
func NewMessageService(primary, admin repository.MessageRepository, maxContentLength int, log *logger.Logger) *MessageService {
	if admin == nil {
		admin = primary
	}
	if maxContentLength <= 0 {
		maxContentLength = DefaultMaxContentLength
	}
	if log == nil {
		log = logger.Nop()
	}
	return &MessageService{
		primary:          primary,
		admin:            admin,
		maxContentLength: maxContentLength,
		log:              log.WithComponent("message-service"),
		now:              time.Now,
	}
}

// ListPublic returns public messages, newest first
func (s *MessageService) ListPublic(ctx context.Context) ([]models.Message, error) {
	all, err := s.primary.ListAll(ctx)
	if err != nil {
		return nil, s.translate(err, "failed to load messages")
	}

	public := make([]models.Message, 0, len(all))
	for _, m := range all {
		if m.IsPublic {
			public = append(public, m)
		}
	}
	normalize.SortByRecency(public)
	return public, nil
}

// Submit validates req and stores it as a new message
func (s *MessageService) Submit(ctx context.Context, req *models.SubmitRequest) (*models.Message, error) {
	if fields := s.Validate(req); len(fields) > 0 {
		return nil, apperrors.NewValidationError(fields)
	}

	isPublic := true
	if v := req.Visibility(); v != nil {
		isPublic = *v
	}

	now := s.now().UTC()
	msg := models.Message{
		ID:        s.nextID(now),
		Name:      strings.TrimSpace(req.NameField().Value),
		Email:     strings.TrimSpace(req.EmailField().Value),
		Content:   strings.TrimSpace(req.Content),
		CreatedAt: now.Format(TimestampLayout),
		IsPublic:  isPublic,
	}

	created, err := s.primary.Create(ctx, msg)
	if err != nil {
		return nil, s.translate(err, "failed to save message")
	}

	s.log.Info("Message submitted", "id", created.ID, "backend", s.primary.Name(), "public", created.IsPublic)
	return &created, nil
}

// Validate returns a per-field error map, empty when req is acceptable.
// Author fields are keyed by the spelling the client used.
func (s *MessageService) Validate(req *models.SubmitRequest) map[string]string {
	fields := make(map[string]string)
	if req == nil {
		req = &models.SubmitRequest{}
	}

	for _, f := range []models.Field{req.NameField(), req.EmailField()} {
		if strings.TrimSpace(f.Value) == "" {
			fields[f.Key] = f.Key + " is required"
		}
	}

	content := strings.TrimSpace(req.Content)
	switch {
	case content == "":
		fields["content"] = "content is required"
	case utf8.RuneCountInString(content) > s.maxContentLength:
		fields["content"] = fmt.Sprintf("content must be at most %d characters", s.maxContentLength)
	}
	return fields
}

// AdminList returns every message from the admin backend with visibility counts
func (s *MessageService) AdminList(ctx context.Context) (*models.AdminListing, error) {
	all, err := s.admin.ListAll(ctx)
	if err != nil {
		return nil, s.translate(err, "failed to load messages")
	}
	normalize.SortByRecency(all)

	listing := &models.AdminListing{Messages: all}
	for _, m := range all {
		if m.IsPublic {
			listing.PublicCount++
		} else {
			listing.PrivateCount++
		}
	}
	return listing, nil
}

// Get returns one message from the admin backend
func (s *MessageService) Get(ctx context.Context, id string) (*models.Message, error) {
	msg, err := s.admin.GetByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, "failed to load message")
	}
	if msg == nil {
		return nil, apperrors.NewNotFoundError("not found")
	}
	return msg, nil
}

// Delete removes one message from the admin backend and returns it
func (s *MessageService) Delete(ctx context.Context, id string) (*models.Message, error) {
	msg, err := s.admin.DeleteByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, "failed to delete message")
	}
	if msg == nil {
		return nil, apperrors.NewNotFoundError("not found")
	}

	s.log.Info("Message deleted", "id", id, "backend", s.admin.Name())
	return msg, nil
}

// nextID returns a millisecond timestamp id, bumped when two submissions land in the same millisecond
func (s *MessageService) nextID(now time.Time) string {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

// translate maps repository failures onto application errors
func (s *MessageService) translate(err error, message string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, github.ErrMissingCredential):
		return apperrors.NewMissingCredentialError("write token is not configured").WithCause(err)
	case errors.Is(err, repository.ErrBackendUnavailable):
		appErr = apperrors.NewBackendUnavailableError(message).WithCause(err)
		var se *github.StatusError
		if errors.As(err, &se) {
			appErr.WithDetails(map[string]any{"status": se.StatusCode, "body": se.Body})
		}
		return appErr
	case errors.Is(err, repository.ErrStorageIO):
		return apperrors.NewStorageIOError(message).WithCause(err)
	default:
		return apperrors.NewInternalServerError(apperrors.CodeInternal, message).WithCause(err)
	}
}
