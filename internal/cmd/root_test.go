package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cuberrors "github.com/BelikanM/cub/pkg/errors"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	base := []string{"--config", filepath.Join(t.TempDir(), "config.toml"), "--output", "text", "--backend", ""}
	rootCmd.SetArgs(append(base, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "cub v"+Version)
}

func TestInvalidOutputFormat(t *testing.T) {
	_, err := run(t, "--output", "xml", "version")

	assert.True(t, cuberrors.IsValidation(err))
}

func TestInvalidBackend(t *testing.T) {
	_, err := run(t, "--backend", "grpc", "version")

	assert.True(t, cuberrors.IsValidation(err))
}

func TestCommandsRequireLogin(t *testing.T) {
	for _, args := range [][]string{
		{"post", "list"},
		{"media", "list"},
		{"follow"},
		{"profile"},
	} {
		_, err := run(t, args...)
		assert.True(t, cuberrors.IsAuthorization(err), "%v", args)
	}
}

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"auth", "post", "media", "follow", "profile", "users", "version", "completion"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
