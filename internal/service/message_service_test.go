package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"portfolio-messageboard/backend/internal/github"
	"portfolio-messageboard/backend/internal/models"
	"portfolio-messageboard/backend/internal/repository"
	apperrors "portfolio-messageboard/backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepository struct {
	msgs    []models.Message
	err     error
	created []models.Message
}

func (r *stubRepository) Name() string { return "stub" }

func (r *stubRepository) ListAll(_ context.Context) ([]models.Message, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]models.Message, len(r.msgs))
	copy(out, r.msgs)
	return out, nil
}

func (r *stubRepository) Create(_ context.Context, msg models.Message) (models.Message, error) {
	if r.err != nil {
		return models.Message{}, r.err
	}
	r.created = append(r.created, msg)
	r.msgs = append(r.msgs, msg)
	return msg, nil
}

func (r *stubRepository) GetByID(_ context.Context, id string) (*models.Message, error) {
	if r.err != nil {
		return nil, r.err
	}
	for i := range r.msgs {
		if r.msgs[i].ID == id {
			m := r.msgs[i]
			return &m, nil
		}
	}
	return nil, nil
}

func (r *stubRepository) DeleteByID(ctx context.Context, id string) (*models.Message, error) {
	m, err := r.GetByID(ctx, id)
	if err != nil || m == nil {
		return nil, err
	}
	for i := range r.msgs {
		if r.msgs[i].ID == id {
			r.msgs = append(r.msgs[:i], r.msgs[i+1:]...)
			break
		}
	}
	return m, nil
}

func (r *stubRepository) Ping(_ context.Context) error { return r.err }

func boolPtr(b bool) *bool { return &b }

func TestListPublicFiltersAndSorts(t *testing.T) {
	primary := &stubRepository{msgs: []models.Message{
		{ID: "1", Content: "a", CreatedAt: "2024-01-01T00:00:00Z", IsPublic: true},
		{ID: "2", Content: "b", CreatedAt: "2024-03-01T00:00:00Z", IsPublic: false},
		{ID: "3", Content: "c", CreatedAt: "2024-02-01T00:00:00Z", IsPublic: true},
	}}
	svc := NewMessageService(primary, nil, 0, nil)

	msgs, err := svc.ListPublic(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "3", msgs[0].ID)
	assert.Equal(t, "1", msgs[1].ID)
}

func TestSubmitBuildsMessage(t *testing.T) {
	primary := &stubRepository{}
	svc := NewMessageService(primary, nil, 0, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 10_000_000, time.FixedZone("x", 3600)) }

	msg, err := svc.Submit(context.Background(), &models.SubmitRequest{
		Name:    "  alice ",
		Email:   "alice@example.com",
		Content: " hi ",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", msg.Name)
	assert.Equal(t, "hi", msg.Content)
	assert.True(t, msg.IsPublic)
	assert.Equal(t, "2024-05-06T06:08:09.010Z", msg.CreatedAt)
	assert.NotEmpty(t, msg.ID)

	msg, err = svc.Submit(context.Background(), &models.SubmitRequest{
		Name:     "bob",
		Email:    "bob@example.com",
		Content:  "secret",
		IsPublic: boolPtr(false),
	})
	require.NoError(t, err)
	assert.False(t, msg.IsPublic)
	assert.NotEqual(t, primary.created[0].ID, primary.created[1].ID)
}

func TestSubmitValidation(t *testing.T) {
	primary := &stubRepository{}
	svc := NewMessageService(primary, nil, 10, nil)

	_, err := svc.Submit(context.Background(), &models.SubmitRequest{Name: "", Email: "a@b.com", Content: "hi"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	fields := apperrors.GetErrorDetails(err).(map[string]string)
	assert.Contains(t, fields, "name")
	assert.NotContains(t, fields, "email")
	assert.NotContains(t, fields, "content")

	fields = svc.Validate(&models.SubmitRequest{Name: " ", Email: "\t", Content: strings.Repeat("x", 11)})
	assert.Len(t, fields, 3)
	assert.Contains(t, fields["content"], "10")

	assert.Len(t, svc.Validate(nil), 3)
	assert.Empty(t, primary.created)
}

func strPtr(s string) *string { return &s }

func TestSubmitAcceptsAuthorAliases(t *testing.T) {
	primary := &stubRepository{}
	svc := NewMessageService(primary, nil, 0, nil)

	fields := svc.Validate(&models.SubmitRequest{AuthorName: strPtr(""), AuthorEmail: strPtr("a@b.com"), Content: "hi"})
	assert.Equal(t, map[string]string{"author_name": "author_name is required"}, fields)

	msg, err := svc.Submit(context.Background(), &models.SubmitRequest{
		AuthorName:  strPtr(" alice "),
		AuthorEmail: strPtr("a@b.com"),
		Content:     "hi",
		PublicFlag:  boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", msg.Name)
	assert.Equal(t, "a@b.com", msg.Email)
	assert.False(t, msg.IsPublic)

	msg, err = svc.Submit(context.Background(), &models.SubmitRequest{
		Name:       "bob",
		AuthorName: strPtr("ignored"),
		Email:      "b@b.com",
		Content:    "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", msg.Name)
	assert.True(t, msg.IsPublic)
}

func TestAdminListCounts(t *testing.T) {
	admin := &stubRepository{msgs: []models.Message{
		{ID: "1", IsPublic: true, CreatedAt: "2024-01-01T00:00:00Z"},
		{ID: "2", IsPublic: false, CreatedAt: "2024-01-02T00:00:00Z"},
		{ID: "3", IsPublic: false, CreatedAt: "2024-01-03T00:00:00Z"},
	}}
	svc := NewMessageService(&stubRepository{}, admin, 0, nil)

	listing, err := svc.AdminList(context.Background())
	require.NoError(t, err)
	assert.Len(t, listing.Messages, 3)
	assert.Equal(t, "3", listing.Messages[0].ID)
	assert.Equal(t, 1, listing.PublicCount)
	assert.Equal(t, 2, listing.PrivateCount)
}

func TestGetAndDeleteNotFound(t *testing.T) {
	admin := &stubRepository{msgs: []models.Message{{ID: "1", Content: "x"}}}
	svc := NewMessageService(&stubRepository{}, admin, 0, nil)
	ctx := context.Background()

	msg, err := svc.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "x", msg.Content)

	_, err = svc.Get(ctx, "2")
	assert.Equal(t, http.StatusNotFound, apperrors.GetStatusCode(err))

	removed, err := svc.Delete(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", removed.ID)

	_, err = svc.Delete(ctx, "1")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestErrorTranslation(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"missing credential", github.ErrMissingCredential, apperrors.CodeMissingCredential, http.StatusInternalServerError},
		{
			"backend unavailable",
			fmt.Errorf("%w: %w", repository.ErrBackendUnavailable, &github.StatusError{Op: "list", StatusCode: 502, Body: "bad gateway"}),
			apperrors.CodeBackendUnavailable,
			http.StatusInternalServerError,
		},
		{"storage", fmt.Errorf("%w: disk full", repository.ErrStorageIO), apperrors.CodeStorageIO, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), apperrors.CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewMessageService(&stubRepository{err: tt.err}, nil, 0, nil)
			_, err := svc.ListPublic(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetErrorCode(err))
			assert.Equal(t, tt.status, apperrors.GetStatusCode(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestBackendUnavailableEchoesStatus(t *testing.T) {
	cause := fmt.Errorf("%w: %w", repository.ErrBackendUnavailable, &github.StatusError{Op: "list", StatusCode: 403, Body: "rate limited"})
	svc := NewMessageService(&stubRepository{err: cause}, nil, 0, nil)

	_, err := svc.ListPublic(context.Background())
	details := apperrors.GetErrorDetails(err).(map[string]any)
	assert.Equal(t, 403, details["status"])
	assert.Equal(t, "rate limited", details["body"])
}
