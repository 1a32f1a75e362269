package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"portfolio-messageboard/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileRepo(t *testing.T) *FileRepository {
	t.Helper()
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "data"), "messages.json", nil)
	require.NoError(t, err)
	return repo
}

func sampleMessage(id string) models.Message {
	return models.Message{
		ID:        id,
		Name:      "alice",
		Email:     "alice@example.com",
		Content:   "hello " + id,
		CreatedAt: "2024-01-01T00:00:00.000Z",
		IsPublic:  true,
	}
}

func TestNewFileRepositoryCreatesEmptyDocument(t *testing.T) {
	repo := newFileRepo(t)

	data, err := os.ReadFile(repo.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	msgs, err := repo.ReadAll()
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestNewFileRepositoryKeepsExistingDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"_id":"1","name":"a","email":"","content":"x","createdAt":"t","isPublic":false}]`), 0o644))

	repo, err := NewFileRepository(dir, "messages.json", nil)
	require.NoError(t, err)

	msgs, err := repo.ReadAll()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].IsPublic)
}

func TestWriteAllFormatsDocument(t *testing.T) {
	repo := newFileRepo(t)
	require.NoError(t, repo.WriteAll([]models.Message{sampleMessage("1")}))

	data, err := os.ReadFile(repo.Path())
	require.NoError(t, err)
	assert.Equal(t, `[
  {
    "_id": "1",
    "name": "alice",
    "email": "alice@example.com",
    "content": "hello 1",
    "createdAt": "2024-01-01T00:00:00.000Z",
    "isPublic": true
  }
]`, string(data))

	require.NoError(t, repo.WriteAll(nil))
	data, err = os.ReadFile(repo.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestReadAllCorruptedDocumentIsEmpty(t *testing.T) {
	repo := newFileRepo(t)
	for _, body := range []string{"{not json", `{"_id":"1"}`, ""} {
		require.NoError(t, os.WriteFile(repo.Path(), []byte(body), 0o644))

		msgs, err := repo.ReadAll()
		require.NoError(t, err, body)
		assert.Empty(t, msgs, body)
	}
}

func TestReadAllMissingDocumentIsEmpty(t *testing.T) {
	repo := newFileRepo(t)
	require.NoError(t, os.Remove(repo.Path()))

	msgs, err := repo.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestAddAppendsInOrder(t *testing.T) {
	repo := newFileRepo(t)

	_, err := repo.Add(sampleMessage("1"))
	require.NoError(t, err)
	_, err = repo.Add(sampleMessage("2"))
	require.NoError(t, err)

	msgs, err := repo.ReadAll()
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "1", msgs[0].ID)
	assert.Equal(t, "2", msgs[1].ID)
}

func TestAddRequiresID(t *testing.T) {
	repo := newFileRepo(t)
	_, err := repo.Add(sampleMessage(""))
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestGetByID(t *testing.T) {
	repo := newFileRepo(t)
	ctx := context.Background()
	_, err := repo.Create(ctx, sampleMessage("1"))
	require.NoError(t, err)

	msg, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "hello 1", msg.Content)

	msg, err = repo.GetByID(ctx, "2")
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestDeleteByIDRemovesMessage(t *testing.T) {
	repo := newFileRepo(t)
	ctx := context.Background()
	for _, id := range []string{"1", "2", "3"} {
		_, err := repo.Create(ctx, sampleMessage(id))
		require.NoError(t, err)
	}

	removed, err := repo.DeleteByID(ctx, "2")
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Equal(t, "2", removed.ID)

	msgs, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "1", msgs[0].ID)
	assert.Equal(t, "3", msgs[1].ID)
}

func TestDeleteByIDUnknownLeavesDocumentUntouched(t *testing.T) {
	repo := newFileRepo(t)
	ctx := context.Background()
	_, err := repo.Create(ctx, sampleMessage("1"))
	require.NoError(t, err)

	before, err := os.ReadFile(repo.Path())
	require.NoError(t, err)
	statBefore, err := os.Stat(repo.Path())
	require.NoError(t, err)

	removed, err := repo.DeleteByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, removed)

	after, err := os.ReadFile(repo.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
	statAfter, err := os.Stat(repo.Path())
	require.NoError(t, err)
	assert.Equal(t, statBefore.ModTime(), statAfter.ModTime())
}

func TestConcurrentAddsKeepEveryMessage(t *testing.T) {
	repo := newFileRepo(t)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Add(sampleMessage(fmt.Sprintf("m%d", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	msgs, err := repo.ReadAll()
	require.NoError(t, err)
	assert.Len(t, msgs, writers)

	seen := make(map[string]bool, writers)
	for _, m := range msgs {
		seen[m.ID] = true
	}
	assert.Len(t, seen, writers)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(repo.Path()), ".messages-*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFilePing(t *testing.T) {
	repo := newFileRepo(t)
	assert.NoError(t, repo.Ping(context.Background()))
	assert.Equal(t, "file", repo.Name())
}
