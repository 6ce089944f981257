package auth

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BelikanM/cub/pkg/config"
	"github.com/BelikanM/cub/pkg/credentials"
	cuberrors "github.com/BelikanM/cub/pkg/errors"
)

func setupConfig(t *testing.T) {
	t.Helper()
	require.NoError(t, config.Init(filepath.Join(t.TempDir(), "config.toml")))
}

func TestRequireCredentials_NotLoggedIn(t *testing.T) {
	setupConfig(t)

	_, err := RequireCredentials()

	require.Error(t, err)
	assert.True(t, cuberrors.IsAuthorization(err))
}

func TestRequireCredentials_Expired(t *testing.T) {
	setupConfig(t)
	require.NoError(t, credentials.Save(&credentials.Credentials{AccessToken: "tok", ExpiresAt: time.Now().Add(-time.Minute)}))

	_, err := RequireCredentials()

	assert.True(t, cuberrors.IsAuthorization(err))
	assert.Contains(t, err.Error(), "expired")
}

func TestRequireCredentials_Valid(t *testing.T) {
	setupConfig(t)
	require.NoError(t, credentials.Save(&credentials.Credentials{AccessToken: "tok", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}))

	creds, err := RequireCredentials()

	require.NoError(t, err)
	assert.Equal(t, "u1", creds.UserID)
}

func TestIsSessionError(t *testing.T) {
	assert.False(t, IsSessionError(nil))
	assert.False(t, IsSessionError(errors.New("401")))
	assert.False(t, IsSessionError(cuberrors.FromStatus(403, "not your post")), "403 is an item-level denial")
	assert.True(t, IsSessionError(cuberrors.FromStatus(401, "token expired")))
}

func TestHandleSessionError_ClearsCredentials(t *testing.T) {
	setupConfig(t)
	require.NoError(t, credentials.Save(&credentials.Credentials{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}))

	err := HandleSessionError(cuberrors.FromStatus(401, "invalid token"))
	require.Error(t, err)

	creds, loadErr := credentials.Load()
	require.NoError(t, loadErr)
	assert.Nil(t, creds)
}

func TestHandleSessionError_KeepsCredentialsOnOtherErrors(t *testing.T) {
	setupConfig(t)
	require.NoError(t, credentials.Save(&credentials.Credentials{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}))

	_ = HandleSessionError(cuberrors.FromStatus(403, "not owner"))

	creds, err := credentials.Load()
	require.NoError(t, err)
	assert.NotNil(t, creds)
}
