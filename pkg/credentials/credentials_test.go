package credentials

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BelikanM/cub/pkg/config"
)

func TestCredentialsIsExpired(t *testing.T) {
	testCases := []struct {
		name      string
		expiresAt time.Time
		expect    bool
	}{
		{"past expiration", time.Now().Add(-1 * time.Hour), true},
		{"future expiration", time.Now().Add(1 * time.Hour), false},
		{"recently expired", time.Now().Add(-1 * time.Minute), true},
		{"expiring soon", time.Now().Add(1 * time.Minute), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			creds := &Credentials{AccessToken: "test_token", ExpiresAt: tc.expiresAt}
			assert.Equal(t, tc.expect, creds.IsExpired())
		})
	}
}

func TestCredentialsIsValid(t *testing.T) {
	assert.True(t, (&Credentials{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}).IsValid())
	assert.False(t, (&Credentials{ExpiresAt: time.Now().Add(time.Hour)}).IsValid())
	assert.False(t, (&Credentials{AccessToken: "tok", ExpiresAt: time.Now().Add(-time.Hour)}).IsValid())
}

func TestSaveLoadDelete(t *testing.T) {
	require.NoError(t, config.Init(filepath.Join(t.TempDir(), "config.toml")))

	missing, err := Load()
	require.NoError(t, err)
	assert.Nil(t, missing)

	creds := &Credentials{
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		UserID:      "u-1",
		Name:        "Ada",
		Email:       "ada@example.com",
	}
	require.NoError(t, Save(creds))

	info, err := os.Stat(config.GetCredentialsPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, creds, loaded)

	require.NoError(t, Delete())
	require.NoError(t, Delete(), "deleting twice is fine")
}
