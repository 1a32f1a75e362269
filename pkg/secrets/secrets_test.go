package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironmentFallbackWhenVaultDisabled(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "env-token")

	m, err := NewVaultManager(VaultConfig{Enabled: false}, nil)
	require.NoError(t, err)

	value, err := m.GetSecret(context.Background(), GitHubTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "env-token", value)
}

func TestMissingSecretUsesDefault(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")

	m, err := NewVaultManager(VaultConfig{}, nil)
	require.NoError(t, err)

	_, err = m.GetSecret(context.Background(), GitHubTokenKey)
	assert.ErrorIs(t, err, ErrSecretNotFound)
	assert.Equal(t, "fallback", m.GetSecretWithDefault(context.Background(), GitHubTokenKey, "fallback"))
}

func TestEnabledVaultRequiresAddressAndToken(t *testing.T) {
	_, err := NewVaultManager(VaultConfig{Enabled: true, Token: "t"}, nil)
	assert.ErrorIs(t, err, ErrNoVaultAddress)

	_, err = NewVaultManager(VaultConfig{Enabled: true, Address: "http://127.0.0.1:8200"}, nil)
	assert.ErrorIs(t, err, ErrNoVaultToken)
}

func TestReadsFromVaultKV(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/v1/secret/data/messageboard", r.URL.Path)
		assert.Equal(t, "root", r.Header.Get("X-Vault-Token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"data":{"github_token":"vault-token"},"metadata":{"version":1,"created_time":"2024-01-01T00:00:00Z","deletion_time":"","destroyed":false}}}`))
	}))
	t.Cleanup(srv.Close)

	m, err := NewVaultManager(VaultConfig{Enabled: true, Address: srv.URL, Token: "root"}, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		value, err := m.GetSecret(context.Background(), GitHubTokenKey)
		require.NoError(t, err)
		assert.Equal(t, "vault-token", value)
	}
	assert.Equal(t, 1, hits)

	m.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = m.GetSecret(context.Background(), GitHubTokenKey)
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
}

func TestVaultMissingKeyFallsBackToEnvironment(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "env-token")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"data":{"other":"x"},"metadata":{"version":1}}}`))
	}))
	t.Cleanup(srv.Close)

	m, err := NewVaultManager(VaultConfig{Enabled: true, Address: srv.URL, Token: "root"}, nil)
	require.NoError(t, err)

	value, err := m.GetSecret(context.Background(), GitHubTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "env-token", value)
}

func TestGitHubTokenUsesDefaultManager(t *testing.T) {
	SetManager(nil)
	assert.Equal(t, "fallback", GitHubToken(context.Background(), "fallback"))

	t.Setenv("GITHUB_TOKEN", "env-token")
	require.NoError(t, Init(VaultConfig{}, nil))
	t.Cleanup(func() { SetManager(nil) })
	assert.Equal(t, "env-token", GitHubToken(context.Background(), ""))
}
